package fees

import (
	"fmt"
	"net/url"
	"strings"
	"time"
	"unicode"

	"github.com/divan/num2words"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/trezcool/vidyaverse/core"
	"github.com/trezcool/vidyaverse/core/school"
)

// Receipt is the printable record of one payment, with the balance right after it.
type Receipt struct {
	No            string          `json:"no"`
	Date          time.Time       `json:"date"`
	StudentName   string          `json:"student_name"`
	AdmissionNo   string          `json:"admission_no"`
	ClassLabel    string          `json:"class_label"`
	Amount        decimal.Decimal `json:"amount"`
	AmountInWords string          `json:"amount_in_words"`
	Mode          string          `json:"mode"`
	TotalFees     decimal.Decimal `json:"total_fees"`
	FeesPaid      decimal.Decimal `json:"fees_paid"`
	Pending       decimal.Decimal `json:"pending"`
	School        string          `json:"school"`
}

func NewReceipt(st school.Student, pay school.FeePayment, schoolName string) Receipt {
	return Receipt{
		No:            pay.ReceiptNo,
		Date:          pay.Date,
		StudentName:   st.Name,
		AdmissionNo:   st.AdmissionNo,
		ClassLabel:    st.ClassLabel(),
		Amount:        pay.Amount,
		AmountInWords: AmountInWords(pay.Amount),
		Mode:          pay.Mode,
		TotalFees:     st.TotalFees,
		FeesPaid:      st.FeesPaid,
		Pending:       decimal.Max(decimal.Zero, st.Pending()),
		School:        schoolName,
	}
}

// receiptView is the receipt as the email templates print it.
type receiptView struct {
	No            string
	Date          string
	Mode          string
	School        string
	StudentName   string
	AdmissionNo   string
	ClassLabel    string
	Amount        string
	AmountInWords string
	TotalFees     string
	FeesPaid      string
	Pending       string
}

func (r Receipt) view(money *core.MoneyFormatter) receiptView {
	return receiptView{
		No:            r.No,
		Date:          r.Date.Format("02-01-2006"),
		Mode:          r.Mode,
		School:        r.School,
		StudentName:   r.StudentName,
		AdmissionNo:   r.AdmissionNo,
		ClassLabel:    r.ClassLabel,
		Amount:        money.Amount(r.Amount),
		AmountInWords: r.AmountInWords,
		TotalFees:     money.Amount(r.TotalFees),
		FeesPaid:      money.Amount(r.FeesPaid),
		Pending:       money.Amount(r.Pending),
	}
}

// AmountInWords spells an amount the way receipts print it: "Rupees One Thousand Two Hundred And Fifty Paise Only".
func AmountInWords(d decimal.Decimal) string {
	d = d.Abs().Round(2)
	rupees := d.IntPart()
	paise := d.Sub(decimal.NewFromInt(rupees)).Shift(2).IntPart()

	words := "Rupees " + titleCase(num2words.Convert(int(rupees)))
	if paise > 0 {
		words += " And " + titleCase(num2words.Convert(int(paise))) + " Paise"
	}
	return words + " Only"
}

func titleCase(s string) string {
	rs := []rune(s)
	for i, r := range rs {
		if i == 0 || rs[i-1] == ' ' || rs[i-1] == '-' {
			rs[i] = unicode.ToUpper(r)
		}
	}
	return string(rs)
}

// ReminderLink builds a WhatsApp link carrying a pending fees reminder for the parent of st.
// mobile numbers keep their last 10 digits and get countryCode prepended.
func ReminderLink(st school.Student, schoolName, countryCode string, money *core.MoneyFormatter) (string, error) {
	pending := st.Pending()
	if !pending.IsPositive() {
		return "", core.NewValidationError(
			errors.Errorf("%s has no pending fees", st.Name),
			core.FieldError{Field: "fees", Error: "no dues"},
		)
	}

	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, st.Mobile)
	if len(digits) > 10 {
		digits = digits[len(digits)-10:]
	}
	if len(digits) != 10 {
		return "", core.NewValidationError(
			errors.Errorf("cannot send reminder to %s: invalid mobile number %q", st.Name, st.Mobile),
			core.FieldError{Field: "mobile", Error: "invalid mobile number"},
		)
	}

	msg := fmt.Sprintf(
		"Dear Parent of %s,\nThis is a friendly reminder from %s that your pending fee amount is %s.\n"+
			"Please clear the dues at your earliest convenience.\nThank you.",
		st.Name, schoolName, money.Amount(pending),
	)
	return "https://wa.me/" + countryCode + digits + "?" + url.Values{"text": {msg}}.Encode(), nil
}
