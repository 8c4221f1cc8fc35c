package main

import (
	"bufio"
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"
	"syscall"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"golang.org/x/term"

	"github.com/trezcool/vidyaverse/core/fees"
	"github.com/trezcool/vidyaverse/core/promotion"
	"github.com/trezcool/vidyaverse/core/report"
	"github.com/trezcool/vidyaverse/core/school"
	cachesvc "github.com/trezcool/vidyaverse/services/cache"
	"github.com/trezcool/vidyaverse/services/render"
)

var (
	isTerminalFunc = term.IsTerminal // mockable

	errHelp = errors.New("help provided")
)

type commandLine struct {
	db           *sql.DB
	store        school.Store
	feesSvc      *fees.Service
	promotionSvc *promotion.Service
	reportSvc    *report.Service
	renderers    *render.Registry
	cache        cachesvc.ReportCache
	validate     *validator.Validate
	translator   ut.Translator
	secretKey    string

	in  io.Reader
	out io.Writer
}

func (cli *commandLine) printUsage() {
	fmt.Fprintln(cli.out, "Usage:")
	fmt.Fprintln(cli.out, "  migrate COMMAND [ARGS...] - run a goose command (up, down, status, ...) on the embedded migrations")
	fmt.Fprintln(cli.out, "  collectfee -student ID -amount N [-receipt R] [-date YYYY-MM-DD] [-mode M] - record a fee payment")
	fmt.Fprintln(cli.out, "  promote -from CLASS -to CLASS - move every student of a class to another")
	fmt.Fprintln(cli.out, "  report -kind KIND -format csv|xlsx|html|pdf -out FILE [-orientation O] [filters] - export a report")
	fmt.Fprintln(cli.out, "  marksheet -marks FILE.json -format csv|xlsx|html|pdf -out FILE [-orientation O] - print a student's marksheet")
	fmt.Fprintln(cli.out, "  reconcile [-fix] - list (and fix) students whose feesPaid differs from their payments")
	fmt.Fprintln(cli.out, "  token -username U [-email E] [-admin] [-role R] [-ttl 24h] - issue an API token")
	fmt.Fprintln(cli.out, "  reset [-yes] - wipe every ledger")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}
	ctx := context.Background()

	collectFeeCmd := flag.NewFlagSet("collectfee", flag.ExitOnError)
	collectFeeStudent := collectFeeCmd.String("student", "", "The student's id.")
	collectFeeAmount := collectFeeCmd.String("amount", "", "The amount paid.")
	collectFeeReceipt := collectFeeCmd.String("receipt", "", "The receipt number (generated when empty).")
	collectFeeDate := collectFeeCmd.String("date", "", "The payment date, YYYY-MM-DD (today when empty).")
	collectFeeMode := collectFeeCmd.String("mode", "", "Cash, UPI, Cheque or Online (Cash when empty).")

	promoteCmd := flag.NewFlagSet("promote", flag.ExitOnError)
	promoteFrom := promoteCmd.String("from", "", "The class to promote.")
	promoteTo := promoteCmd.String("to", "", "The destination class.")

	reportCmd := flag.NewFlagSet("report", flag.ExitOnError)
	reportKind := reportCmd.String("kind", "", "One of: "+strings.Join(report.Kinds, ", "))
	reportFormat := reportCmd.String("format", render.CSV, "csv, xlsx, html or pdf")
	reportOut := reportCmd.String("out", "", "The output file, - for stdout.")
	var reportFilter report.Filter
	reportCmd.StringVar(&reportFilter.Class, "class", "", "The class filter.")
	reportCmd.StringVar(&reportFilter.Section, "section", "", "The section filter.")
	reportCmd.IntVar(&reportFilter.Year, "year", 0, "The year (attendance, muster, balance sheet).")
	reportCmd.IntVar(&reportFilter.Month, "month", 0, "The month, 1-12.")
	reportCmd.StringVar(&reportFilter.From, "from", "", "The period start, YYYY-MM-DD (expenses).")
	reportCmd.StringVar(&reportFilter.To, "to", "", "The period end, YYYY-MM-DD (expenses).")
	reportCmd.StringVar(&reportFilter.Mode, "mode", "", "yearly or monthly (balance sheet).")
	reportCmd.StringVar(&reportFilter.Orientation, "orientation", "", "portrait or landscape (defaults to the report's own).")

	marksheetCmd := flag.NewFlagSet("marksheet", flag.ExitOnError)
	marksheetMarks := marksheetCmd.String("marks", "", "A json file: {student_id, exam, subjects: [{subject, theory_max, ...}]}.")
	marksheetFormat := marksheetCmd.String("format", render.PDF, "csv, xlsx, html or pdf")
	marksheetOut := marksheetCmd.String("out", "", "The output file, - for stdout.")
	marksheetOrientation := marksheetCmd.String("orientation", "", "portrait or landscape.")

	reconcileCmd := flag.NewFlagSet("reconcile", flag.ExitOnError)
	reconcileFix := reconcileCmd.Bool("fix", false, "Rewrite feesPaid from the payments.")

	tokenCmd := flag.NewFlagSet("token", flag.ExitOnError)
	tokenUsername := tokenCmd.String("username", "", "The staff member's username.")
	tokenEmail := tokenCmd.String("email", "", "The staff member's email.")
	tokenAdmin := tokenCmd.Bool("admin", false, "Allow ledger writes.")
	tokenRole := tokenCmd.String("role", "", "An extra role claim.")
	tokenTTL := tokenCmd.Duration("ttl", 24*time.Hour, "How long the token stays valid.")

	resetCmd := flag.NewFlagSet("reset", flag.ExitOnError)
	resetYes := resetCmd.Bool("yes", false, "Do not ask for confirmation.")

	switch args[1] {
	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(args[2:])
	case "collectfee":
		if err := collectFeeCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *collectFeeStudent == "" || *collectFeeAmount == "" {
			collectFeeCmd.Usage()
			return errHelp
		}
		return cli.collectFee(ctx, *collectFeeStudent, *collectFeeAmount, *collectFeeReceipt, *collectFeeDate, *collectFeeMode)
	case "promote":
		if err := promoteCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *promoteFrom == "" || *promoteTo == "" {
			promoteCmd.Usage()
			return errHelp
		}
		return cli.promote(ctx, *promoteFrom, *promoteTo)
	case "report":
		if err := reportCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *reportKind == "" || *reportOut == "" {
			reportCmd.Usage()
			return errHelp
		}
		return cli.report(ctx, *reportKind, *reportFormat, *reportOut, reportFilter)
	case "marksheet":
		if err := marksheetCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *marksheetMarks == "" || *marksheetOut == "" {
			marksheetCmd.Usage()
			return errHelp
		}
		return cli.marksheet(ctx, *marksheetMarks, *marksheetFormat, *marksheetOut, *marksheetOrientation)
	case "reconcile":
		if err := reconcileCmd.Parse(args[2:]); err != nil {
			return err
		}
		return cli.reconcile(ctx, *reconcileFix)
	case "token":
		if err := tokenCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *tokenUsername == "" || *tokenTTL <= 0 {
			tokenCmd.Usage()
			return errHelp
		}
		return cli.issueToken(*tokenUsername, *tokenEmail, *tokenRole, *tokenAdmin, *tokenTTL)
	case "reset":
		if err := resetCmd.Parse(args[2:]); err != nil {
			return err
		}
		if !*resetYes {
			if !isTerminalFunc(int(syscall.Stdin)) {
				return errors.New("refusing to reset without -yes outside of a terminal")
			}
			fmt.Fprint(cli.out, "This wipes every ledger. Type RESET to confirm: ")
			answer, _ := bufio.NewReader(cli.in).ReadString('\n')
			if strings.TrimSpace(answer) != "RESET" {
				return errors.New("reset aborted")
			}
		}
		return cli.reset(ctx)
	default:
		cli.printUsage()
		return errHelp
	}
}
