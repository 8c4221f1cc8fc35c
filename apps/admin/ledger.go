package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	echoapi "github.com/trezcool/vidyaverse/apps/api/echo"
	"github.com/trezcool/vidyaverse/core"
	"github.com/trezcool/vidyaverse/core/fees"
	"github.com/trezcool/vidyaverse/core/report"
	"github.com/trezcool/vidyaverse/services/render"
)

// written invalidates the reports cached by the API after a ledger write, partial ones included.
func (cli *commandLine) written(ctx context.Context) {
	if cli.cache != nil {
		cli.cache.Invalidate(ctx)
	}
}

func (cli *commandLine) collectFee(ctx context.Context, studentID, amount, receipt, date, mode string) error {
	amt, err := decimal.NewFromString(amount)
	if err != nil {
		return core.NewValidationError(errors.Errorf("invalid amount %q", amount))
	}
	req := fees.CollectRequest{StudentID: studentID, Amount: amt, ReceiptNo: receipt, Date: date, Mode: mode}
	if err = req.Validate(cli.validate); err != nil {
		return core.TranslateValidationErrors(err, cli.translator)
	}

	res, err := cli.feesSvc.Collect(ctx, req)
	if err != nil {
		return err
	}
	cli.written(ctx)
	fmt.Fprintf(cli.out, "receipt %s: collected %s from %s (%s), pending %s\n",
		res.Receipt.No, res.Payment.Amount.StringFixed(2), res.Student.Name, res.Student.AdmissionNo,
		res.Receipt.Pending.StringFixed(2))
	return nil
}

func (cli *commandLine) promote(ctx context.Context, from, to string) error {
	moved, err := cli.promotionSvc.Promote(ctx, from, to)
	cli.written(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "%d students promoted from %s to %s\n", len(moved), from, to)
	return nil
}

func (cli *commandLine) report(ctx context.Context, kind, format, out string, f report.Filter) error {
	renderer, err := cli.renderers.Get(format)
	if err != nil {
		return err
	}
	if err = f.Validate(cli.validate); err != nil {
		return core.TranslateValidationErrors(err, cli.translator)
	}
	t, err := cli.reportSvc.Build(ctx, kind, f)
	if err != nil {
		return err
	}
	return cli.export(ctx, renderer, t, out)
}

func (cli *commandLine) marksheet(ctx context.Context, marksFile, format, out, orientation string) error {
	renderer, err := cli.renderers.Get(format)
	if err != nil {
		return err
	}
	data, err := os.ReadFile(marksFile)
	if err != nil {
		return errors.Wrapf(err, "reading %s", marksFile)
	}
	var req report.MarksheetRequest
	if err = json.Unmarshal(data, &req); err != nil {
		return core.NewValidationError(errors.Wrapf(err, "decoding %s", marksFile))
	}
	if orientation != "" {
		req.Orientation = orientation
	}
	if err = req.Validate(cli.validate); err != nil {
		return core.TranslateValidationErrors(err, cli.translator)
	}

	t, err := cli.reportSvc.Marksheet(ctx, req)
	if err != nil {
		return err
	}
	return cli.export(ctx, renderer, t, out)
}

// export renders t to out, "-" being the standard output.
func (cli *commandLine) export(ctx context.Context, renderer render.Renderer, t report.Table, out string) error {
	var buff bytes.Buffer
	if err := renderer.Render(ctx, &buff, t); err != nil {
		return errors.Wrapf(err, "rendering %s report", renderer.Ext())
	}
	if out == "-" {
		_, err := cli.out.Write(buff.Bytes())
		return err
	}
	if err := os.WriteFile(out, buff.Bytes(), 0o644); err != nil {
		return errors.Wrapf(err, "writing %s", out)
	}
	fmt.Fprintf(cli.out, "%s: %d rows written to %s\n", t.Title, len(t.Rows), out)
	return nil
}

func (cli *commandLine) reconcile(ctx context.Context, fix bool) error {
	drifts, err := cli.feesSvc.Reconcile(ctx, fix)
	if fix {
		cli.written(ctx)
	}
	if len(drifts) == 0 && err == nil {
		fmt.Fprintln(cli.out, "no drift: feesPaid matches the payments of every student")
		return nil
	}

	w := tabwriter.NewWriter(cli.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ADM. NO\tNAME\tRECORDED\tPAYMENTS")
	for _, d := range drifts {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", d.AdmissionNo, d.Name, d.Recorded.StringFixed(2), d.Ledger.StringFixed(2))
	}
	if flushErr := w.Flush(); flushErr != nil && err == nil {
		err = flushErr
	}
	return err
}

func (cli *commandLine) reset(ctx context.Context) error {
	if err := cli.store.DeleteAll(ctx); err != nil {
		return errors.Wrap(err, "wiping ledgers")
	}
	cli.written(ctx)
	fmt.Fprintln(cli.out, "every ledger was wiped")
	return nil
}

func (cli *commandLine) issueToken(username, email, role string, isAdmin bool, ttl time.Duration) error {
	now := time.Now()
	claims := &echoapi.Claims{
		StandardClaims: jwt.StandardClaims{
			Id:        uuid.New().String(),
			Subject:   username,
			IssuedAt:  now.Unix(),
			ExpiresAt: now.Add(ttl).Unix(),
		},
		Username: username,
		Email:    email,
		IsAdmin:  isAdmin,
	}
	if role != "" {
		claims.Roles = []string{role}
	}

	token, err := echoapi.GenerateToken(claims, cli.secretKey)
	if err != nil {
		return err
	}
	fmt.Fprintln(cli.out, token)
	return nil
}
