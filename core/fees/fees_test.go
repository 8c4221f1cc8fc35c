package fees

import (
	"context"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"

	"github.com/trezcool/vidyaverse/core"
	"github.com/trezcool/vidyaverse/core/school"
	appfs "github.com/trezcool/vidyaverse/fs"
	emailsvc "github.com/trezcool/vidyaverse/services/email"
	logsvc "github.com/trezcool/vidyaverse/services/logger"
	testutil "github.com/trezcool/vidyaverse/tests"
)

var (
	conf  = &core.Config{AppName: "VidyaVerse", CurrencySymbol: "₹", ReminderCountryCode: "91", DefaultFromEmail: "office@school.test"}
	today = testutil.Date(2024, time.March, 5)
)

type fixture struct {
	svc     *Service
	store   school.Store
	setFail func(hook func(op, id string) error)
	mailSvc *emailsvc.ConsoleServiceMock
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	store, db := testutil.NewStore(t)
	if err := store.SaveSchoolProfile(context.Background(), school.SchoolProfile{Name: "Green Valley School"}); err != nil {
		t.Fatalf("SaveSchoolProfile() failed: %v", err)
	}
	tmpls, err := core.ParseEmailTemplates(appfs.FS, "templates/email", true)
	if err != nil {
		t.Fatalf("ParseEmailTemplates() failed: %v", err)
	}
	logger := logsvc.NewDiscardLogger()
	mailSvc := emailsvc.NewConsoleServiceMock(conf, tmpls, logger)

	svc := NewService(store, mailSvc, conf, logger)
	svc.nowFunc = func() time.Time { return today.Add(11 * time.Hour) }
	return fixture{svc: svc, store: store, setFail: db.SetFailHook, mailSvc: mailSvc}
}

func TestService_Collect(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	st := testutil.CreateStudent(t, f.store, "GR1", "Aarav", "5", "A", "1", "10000.50", "2500.25")

	res, err := f.svc.Collect(ctx, CollectRequest{StudentID: st.ID, Amount: testutil.Dec("7500.25")})
	if err != nil {
		t.Fatalf("Collect() error = %v", err)
	}
	if !res.Student.FeesPaid.Equal(st.TotalFees) {
		t.Errorf("Collect() feesPaid = %v, want %v", res.Student.FeesPaid, st.TotalFees)
	}
	if !strings.HasPrefix(res.Payment.ReceiptNo, "RCPT-20240305-") {
		t.Errorf("Collect() receipt no = %q, want a generated one", res.Payment.ReceiptNo)
	}
	assert.Equal(t, school.ModeCash, res.Payment.Mode)
	assert.True(t, res.Payment.Date.Equal(today))
	assert.Equal(t, "Green Valley School", res.Receipt.School)
	assert.Equal(t, "5 'A'", res.Receipt.ClassLabel)
	assert.True(t, res.Receipt.Pending.IsZero())

	stored, err := f.store.GetStudent(ctx, st.ID)
	if err != nil {
		t.Fatalf("GetStudent() error = %v", err)
	}
	assert.True(t, stored.FeesPaid.Equal(st.TotalFees))
	payments, _ := f.store.ListFeePayments(ctx)
	assert.Len(t, payments, 1)
}

func TestService_Collect_errors(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		req     func(st school.Student) CollectRequest
		check   func(err error) bool
		wantErr string
	}{
		{
			name:    "overpayment",
			req:     func(st school.Student) CollectRequest { return CollectRequest{StudentID: st.ID, Amount: testutil.Dec("600.01")} },
			check:   func(err error) bool { _, ok := errors.Cause(err).(*core.OverpaymentError); return ok },
			wantErr: "*core.OverpaymentError",
		},
		{
			name:    "zero amount",
			req:     func(st school.Student) CollectRequest { return CollectRequest{StudentID: st.ID} },
			check:   func(err error) bool { _, ok := errors.Cause(err).(*core.ValidationError); return ok },
			wantErr: "*core.ValidationError",
		},
		{
			name:    "negative amount",
			req:     func(st school.Student) CollectRequest { return CollectRequest{StudentID: st.ID, Amount: testutil.Dec("-5")} },
			check:   func(err error) bool { _, ok := errors.Cause(err).(*core.ValidationError); return ok },
			wantErr: "*core.ValidationError",
		},
		{
			name: "malformed date",
			req: func(st school.Student) CollectRequest {
				return CollectRequest{StudentID: st.ID, Amount: testutil.Dec("10"), Date: "05/03/2024"}
			},
			check:   func(err error) bool { _, ok := errors.Cause(err).(*core.ValidationError); return ok },
			wantErr: "*core.ValidationError",
		},
		{
			name:    "unknown student",
			req:     func(st school.Student) CollectRequest { return CollectRequest{StudentID: "nope", Amount: testutil.Dec("10")} },
			check:   func(err error) bool { return errors.Cause(err) == school.ErrStudentNotFound },
			wantErr: "school.ErrStudentNotFound",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			st := testutil.CreateStudent(t, f.store, "GR1", "Aarav", "5", "A", "1", "1000", "400")

			_, err := f.svc.Collect(ctx, tt.req(st))
			if !tt.check(err) {
				t.Fatalf("Collect() error = %v, want %s", err, tt.wantErr)
			}

			// nothing written
			payments, _ := f.store.ListFeePayments(ctx)
			assert.Empty(t, payments)
			stored, _ := f.store.GetStudent(ctx, st.ID)
			assert.True(t, stored.FeesPaid.Equal(st.FeesPaid), "feesPaid = %v", stored.FeesPaid)
		})
	}
}

func TestService_Collect_duplicateReceipt(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	st := testutil.CreateStudent(t, f.store, "GR1", "Aarav", "5", "A", "1", "1000", "0")

	if _, err := f.svc.Collect(ctx, CollectRequest{StudentID: st.ID, Amount: testutil.Dec("100"), ReceiptNo: "R-1"}); err != nil {
		t.Fatalf("Collect() error = %v", err)
	}
	_, err := f.svc.Collect(ctx, CollectRequest{StudentID: st.ID, Amount: testutil.Dec("100"), ReceiptNo: "R-1"})
	if _, ok := errors.Cause(err).(*core.ConflictError); !ok {
		t.Fatalf("Collect() error = %v, want *core.ConflictError", err)
	}

	stored, _ := f.store.GetStudent(ctx, st.ID)
	assert.True(t, stored.FeesPaid.Equal(testutil.Dec("100")), "feesPaid = %v", stored.FeesPaid)
}

func TestService_Collect_rollsBackPayment(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	st := testutil.CreateStudent(t, f.store, "GR1", "Aarav", "5", "A", "1", "1000", "0")

	f.setFail(func(op, id string) error {
		if op == "UpdateStudent" {
			return core.NewUpstreamUnavailable(op, errors.New("connection reset"))
		}
		return nil
	})
	_, err := f.svc.Collect(ctx, CollectRequest{StudentID: st.ID, Amount: testutil.Dec("100")})
	if !core.IsUpstreamUnavailable(err) {
		t.Fatalf("Collect() error = %v, want an upstream unavailable error", err)
	}

	payments, _ := f.store.ListFeePayments(ctx)
	assert.Empty(t, payments, "the payment must not outlive the failed student update")
	drifts, err := f.svc.Reconcile(ctx, false)
	assert.NoError(t, err)
	assert.Empty(t, drifts)
}

func TestService_Collect_mailsReceipt(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	st, err := f.store.CreateStudent(ctx, school.Student{
		AdmissionNo: "GR7",
		Name:        "Diya",
		Class:       "6",
		TotalFees:   testutil.Dec("1500"),
		Email:       "Parent <parent@mail.test>",
	})
	if err != nil {
		t.Fatalf("CreateStudent() error = %v", err)
	}

	if _, err := f.svc.Collect(ctx, CollectRequest{StudentID: st.ID, Amount: testutil.Dec("500"), ReceiptNo: "R-9"}); err != nil {
		t.Fatalf("Collect() error = %v", err)
	}

	sent := f.mailSvc.SentMessages()
	if len(sent) != 1 {
		t.Fatalf("sent messages = %d, want 1", len(sent))
	}
	assert.Equal(t, "parent@mail.test", sent[0].To[0].Address)
	assert.Contains(t, sent[0].TextContent, "Receipt No: R-9")
	assert.Contains(t, sent[0].TextContent, "Rupees Five Hundred Only")
	assert.Contains(t, sent[0].HTMLContent, "Fee Receipt #R-9")
}

func TestService_Reconcile(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	drifting := testutil.CreateStudent(t, f.store, "GR1", "Aarav", "5", "A", "1", "1000", "400")
	clean := testutil.CreateStudent(t, f.store, "GR2", "Diya", "5", "A", "2", "1000", "0")
	if _, err := f.svc.Collect(ctx, CollectRequest{StudentID: clean.ID, Amount: testutil.Dec("250")}); err != nil {
		t.Fatalf("Collect() error = %v", err)
	}

	drifts, err := f.svc.Reconcile(ctx, false)
	if err != nil {
		t.Fatalf("Reconcile() error = %v", err)
	}
	if len(drifts) != 1 || drifts[0].StudentID != drifting.ID {
		t.Fatalf("Reconcile() = %+v, want one drift for %s", drifts, drifting.ID)
	}
	assert.True(t, drifts[0].Recorded.Equal(testutil.Dec("400")))
	assert.True(t, drifts[0].Ledger.IsZero())

	if _, err = f.svc.Reconcile(ctx, true); err != nil {
		t.Fatalf("Reconcile(fix) error = %v", err)
	}
	drifts, err = f.svc.Reconcile(ctx, false)
	assert.NoError(t, err)
	assert.Empty(t, drifts)
}

func TestService_Reconcile_partialFailure(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	a := testutil.CreateStudent(t, f.store, "GR1", "Aarav", "5", "A", "1", "1000", "400")
	b := testutil.CreateStudent(t, f.store, "GR2", "Diya", "5", "A", "2", "1000", "100")

	f.setFail(func(op, id string) error {
		if op == "UpdateStudent" && id == a.ID {
			return errors.New("write refused")
		}
		return nil
	})
	_, err := f.svc.Reconcile(ctx, true)
	batch, ok := errors.Cause(err).(*core.PartialBatchFailure)
	if !ok {
		t.Fatalf("Reconcile() error = %v, want *core.PartialBatchFailure", err)
	}
	assert.Equal(t, []string{a.ID}, batch.FailedIDs())
	assert.Equal(t, []string{b.ID}, batch.Succeeded)
}

func TestService_IssueLeavingCertificate(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	st := testutil.CreateStudent(t, f.store, "GR1", "Aarav", "5", "A", "1", "1000", "400")

	_, _, err := f.svc.IssueLeavingCertificate(ctx, st.ID)
	if _, ok := errors.Cause(err).(*core.ValidationError); !ok {
		t.Fatalf("IssueLeavingCertificate() error = %v, want *core.ValidationError", err)
	}

	if _, err = f.svc.Collect(ctx, CollectRequest{StudentID: st.ID, Amount: testutil.Dec("600")}); err != nil {
		t.Fatalf("Collect() error = %v", err)
	}
	got, dup, err := f.svc.IssueLeavingCertificate(ctx, st.ID)
	if err != nil {
		t.Fatalf("IssueLeavingCertificate() error = %v", err)
	}
	assert.False(t, dup)
	assert.Equal(t, school.StatusLCIssued, got.Status)

	_, dup, err = f.svc.IssueLeavingCertificate(ctx, st.ID)
	assert.NoError(t, err)
	assert.True(t, dup)
}

func TestReminderLink(t *testing.T) {
	money := core.NewMoneyFormatter("₹")

	tests := []struct {
		name       string
		student    school.Student
		wantNumber string
		wantErr    bool
	}{
		{
			name:       "formatted number",
			student:    school.Student{Name: "Aarav", Mobile: "+91 98765-43210", TotalFees: testutil.Dec("1000"), FeesPaid: testutil.Dec("400")},
			wantNumber: "919876543210",
		},
		{
			name:       "plain number",
			student:    school.Student{Name: "Aarav", Mobile: "9876543210", TotalFees: testutil.Dec("1000")},
			wantNumber: "919876543210",
		},
		{
			name:    "no dues",
			student: school.Student{Name: "Aarav", Mobile: "9876543210", TotalFees: testutil.Dec("1000"), FeesPaid: testutil.Dec("1000")},
			wantErr: true,
		},
		{
			name:    "short number",
			student: school.Student{Name: "Aarav", Mobile: "98765", TotalFees: testutil.Dec("1000")},
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ReminderLink(tt.student, "Green Valley School", "91", money)
			if tt.wantErr {
				if _, ok := errors.Cause(err).(*core.ValidationError); !ok {
					t.Fatalf("ReminderLink() error = %v, want *core.ValidationError", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ReminderLink() error = %v", err)
			}
			u, err := url.Parse(got)
			if err != nil {
				t.Fatalf("ReminderLink() = %q is not a url: %v", got, err)
			}
			assert.Equal(t, "wa.me", u.Host)
			assert.Equal(t, "/"+tt.wantNumber, u.Path)
			text := u.Query().Get("text")
			assert.True(t, strings.HasPrefix(text, "Dear Parent of Aarav,\n"), text)
			assert.Contains(t, text, "Green Valley School")
			assert.Contains(t, text, "₹"+money.Number(tt.student.Pending()))
		})
	}
}

func TestAmountInWords(t *testing.T) {
	tests := []struct {
		amount string
		want   string
	}{
		{amount: "500", want: "Rupees Five Hundred Only"},
		{amount: "7", want: "Rupees Seven Only"},
		{amount: "500.50", want: "Rupees Five Hundred And Fifty Paise Only"},
	}
	for _, tt := range tests {
		t.Run(tt.amount, func(t *testing.T) {
			if got := AmountInWords(testutil.Dec(tt.amount)); got != tt.want {
				t.Errorf("AmountInWords() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestCollectRequest_Validate(t *testing.T) {
	validate, _ := core.NewValidator()

	tests := []struct {
		name    string
		req     CollectRequest
		wantErr bool
	}{
		{name: "valid", req: CollectRequest{StudentID: "s1", Amount: testutil.Dec("10"), Mode: "UPI"}},
		{name: "missing student", req: CollectRequest{Amount: testutil.Dec("10")}, wantErr: true},
		{name: "zero amount", req: CollectRequest{StudentID: "s1"}, wantErr: true},
		{name: "unknown mode", req: CollectRequest{StudentID: "s1", Amount: testutil.Dec("10"), Mode: "Barter"}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.req.Validate(validate); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
