// Package fees applies fee payments to students and keeps feesPaid consistent with the payment ledger.
package fees

import (
	"context"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/trezcool/vidyaverse/core"
	"github.com/trezcool/vidyaverse/core/school"
)

type (
	CollectRequest struct {
		StudentID string          `json:"student_id" validate:"required"`
		Amount    decimal.Decimal `json:"amount" validate:"gt=0"`
		Date      string          `json:"date"` // yyyy-mm-dd, defaults to today
		ReceiptNo string          `json:"receipt_no" validate:"max=64"`
		Mode      string          `json:"mode" validate:"omitempty,oneof=Cash UPI Cheque Online"`
		Remark    string          `json:"remark" validate:"max=255"`
	}

	Result struct {
		Student school.Student    `json:"student"`
		Payment school.FeePayment `json:"payment"`
		Receipt Receipt           `json:"receipt"`
	}

	// Drift is a student whose recorded feesPaid differs from the sum of their payments.
	Drift struct {
		StudentID   string          `json:"student_id"`
		AdmissionNo string          `json:"admission_no"`
		Name        string          `json:"name"`
		Recorded    decimal.Decimal `json:"recorded"`
		Ledger      decimal.Decimal `json:"ledger"`
	}

	Service struct {
		store       school.Store
		mailSvc     core.EmailService
		money       *core.MoneyFormatter
		countryCode string
		logger      core.Logger
		nowFunc     func() time.Time
	}
)

func (r *CollectRequest) Clean() {
	r.StudentID = core.CleanString(r.StudentID)
	r.Date = core.CleanString(r.Date)
	r.ReceiptNo = core.CleanString(r.ReceiptNo)
	r.Mode = core.CleanString(r.Mode)
	r.Remark = core.CleanString(r.Remark)
}

func (r *CollectRequest) Validate(validate *validator.Validate) error {
	r.Clean()
	return validate.Struct(r)
}

func NewService(store school.Store, mailSvc core.EmailService, conf *core.Config, logger core.Logger) *Service {
	return &Service{
		store:       store,
		mailSvc:     mailSvc,
		money:       core.NewMoneyFormatter(conf.CurrencySymbol),
		countryCode: conf.ReminderCountryCode,
		logger:      logger,
		nowFunc:     time.Now,
	}
}

// NewReceiptNo generates a receipt number for a payment made on date.
func NewReceiptNo(date time.Time) string {
	return fmt.Sprintf("RCPT-%s-%s", date.Format("20060102"), strings.ToUpper(uuid.New().String()[:8]))
}

// Collect appends a payment for a student and raises their feesPaid by the same amount, in one transaction.
// the payment is rejected, without any write, when it exceeds the outstanding balance.
func (svc *Service) Collect(ctx context.Context, req CollectRequest) (Result, error) {
	req.Clean()
	if !req.Amount.IsPositive() {
		return Result{}, core.NewValidationError(nil, core.FieldError{Field: "amount", Error: "must be greater than 0"})
	}
	date := core.Day(svc.nowFunc())
	if req.Date != "" {
		var err error
		if date, err = core.ParseDate("date", req.Date); err != nil {
			return Result{}, err
		}
	}
	if req.Mode == "" {
		req.Mode = school.ModeCash
	}
	if req.ReceiptNo == "" {
		req.ReceiptNo = NewReceiptNo(date)
	}

	var res Result
	err := svc.store.WithinTx(ctx, func(repo school.Repository) error {
		st, err := repo.GetStudent(ctx, req.StudentID)
		if err != nil {
			return err
		}
		if outstanding := st.Pending(); req.Amount.GreaterThan(outstanding) {
			return &core.OverpaymentError{
				StudentID:   st.ID,
				Amount:      req.Amount,
				Outstanding: outstanding,
				TotalFees:   st.TotalFees,
			}
		}

		pay, err := repo.AppendFeePayment(ctx, school.FeePayment{
			StudentID: st.ID,
			Amount:    req.Amount,
			Date:      date,
			ReceiptNo: req.ReceiptNo,
			Mode:      req.Mode,
			Remark:    req.Remark,
		})
		if err != nil {
			return err
		}

		st.FeesPaid = st.FeesPaid.Add(req.Amount)
		if st, err = repo.UpdateStudent(ctx, st); err != nil {
			return err
		}
		res.Student, res.Payment = st, pay
		return nil
	})
	if err != nil {
		return Result{}, errors.Wrap(err, "collecting fee")
	}

	var schoolName string
	if profile, err := svc.store.GetSchoolProfile(ctx); err == nil {
		schoolName = profile.Name
	} else {
		svc.logger.Warn(fmt.Sprintf("loading school profile for receipt %s: %v", res.Payment.ReceiptNo, err), err)
	}
	res.Receipt = NewReceipt(res.Student, res.Payment, schoolName)

	svc.logger.Info(fmt.Sprintf("collected %s from student %s (receipt %s)",
		svc.money.Amount(res.Payment.Amount), res.Student.ID, res.Payment.ReceiptNo))
	svc.sendReceipt(res.Student, res.Receipt)
	return res, nil
}

// sendReceipt mails the receipt to the guardian, when they have an email address.
func (svc *Service) sendReceipt(st school.Student, rcpt Receipt) {
	if st.Email == "" || svc.mailSvc == nil {
		return
	}
	addr, err := mail.ParseAddress(st.Email)
	if err != nil {
		svc.logger.Warn(fmt.Sprintf("invalid guardian email for student %s: %v", st.ID, err))
		return
	}
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{*addr},
		Subject:      "Fee Receipt " + rcpt.No,
		TemplateName: "fee_receipt",
		TemplateData: rcpt.view(svc.money),
	})
}

// Reconcile compares the recorded feesPaid of every student with the sum of their payments.
// with fix, the drifting students get feesPaid rewritten from the ledger; failures are reported
// as a *core.PartialBatchFailure next to the drifts.
func (svc *Service) Reconcile(ctx context.Context, fix bool) ([]Drift, error) {
	students, err := svc.store.ListStudents(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "loading students")
	}
	payments, err := svc.store.ListFeePayments(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "loading fee payments")
	}

	ledger := make(map[string]decimal.Decimal, len(students))
	for _, p := range payments {
		ledger[p.StudentID] = ledger[p.StudentID].Add(p.Amount)
	}

	drifts := make([]Drift, 0)
	byID := make(map[string]school.Student)
	for _, st := range students {
		if sum := ledger[st.ID]; !sum.Equal(st.FeesPaid) {
			drifts = append(drifts, Drift{
				StudentID:   st.ID,
				AdmissionNo: st.AdmissionNo,
				Name:        st.Name,
				Recorded:    st.FeesPaid,
				Ledger:      sum,
			})
			byID[st.ID] = st
		}
	}
	if !fix || len(drifts) == 0 {
		return drifts, nil
	}

	batch := &core.PartialBatchFailure{Op: "reconcile"}
	for _, d := range drifts {
		st := byID[d.StudentID]
		st.FeesPaid = d.Ledger
		if _, err := svc.store.UpdateStudent(ctx, st); err != nil {
			batch.Failed = append(batch.Failed, core.BatchItemError{ID: st.ID, Err: err})
			continue
		}
		batch.Succeeded = append(batch.Succeeded, st.ID)
	}
	svc.logger.Info(fmt.Sprintf("reconciled %d of %d students", len(batch.Succeeded), len(drifts)))
	if len(batch.Failed) > 0 {
		svc.logger.Warn(batch.Error(), batch)
		return drifts, batch
	}
	return drifts, nil
}

// IssueLeavingCertificate marks a student as LC Issued. it is refused while fees are pending;
// duplicate is true when the certificate was already issued.
func (svc *Service) IssueLeavingCertificate(ctx context.Context, studentID string) (st school.Student, duplicate bool, err error) {
	err = svc.store.WithinTx(ctx, func(repo school.Repository) error {
		if st, err = repo.GetStudent(ctx, studentID); err != nil {
			return err
		}
		if pending := st.Pending(); pending.IsPositive() {
			return core.NewValidationError(
				errors.Errorf("student %s has %s pending fees", st.ID, pending.StringFixed(2)),
				core.FieldError{Field: "fees", Error: "pending fees of " + svc.money.Amount(pending) + " must be cleared first"},
			)
		}
		if st.Status == school.StatusLCIssued {
			duplicate = true
			return nil
		}
		st.Status = school.StatusLCIssued
		st, err = repo.UpdateStudent(ctx, st)
		return err
	})
	if err != nil {
		return school.Student{}, false, errors.Wrap(err, "issuing leaving certificate")
	}
	return st, duplicate, nil
}

// Reminder builds the fee reminder link of a student, signed with the school name.
func (svc *Service) Reminder(ctx context.Context, studentID string) (string, error) {
	st, err := svc.store.GetStudent(ctx, studentID)
	if err != nil {
		return "", errors.Wrap(err, "loading student")
	}
	profile, err := svc.store.GetSchoolProfile(ctx)
	if err != nil {
		return "", errors.Wrap(err, "loading school profile")
	}
	return ReminderLink(st, profile.Name, svc.countryCode, svc.money)
}
