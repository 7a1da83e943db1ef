package ledger

import (
	"fmt"
	"time"

	"github.com/clinic-ledger/backend/internal/domain/shared"
	"github.com/clinic-ledger/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
)

// PaymentStatus represents whether an installment has been settled
type PaymentStatus string

const (
	PaymentStatusPending PaymentStatus = "pending"
	PaymentStatusPaid    PaymentStatus = "paid"
)

// IsValid checks if the payment status is known
func (s PaymentStatus) IsValid() bool {
	return s == PaymentStatusPending || s == PaymentStatusPaid
}

// RemainderPolicy selects which installment absorbs the rounding remainder
type RemainderPolicy string

const (
	// RemainderFirst gives the remainder to installment 1: 1000.00/3 = 333.34, 333.33, 333.33
	RemainderFirst RemainderPolicy = "first"
	// RemainderLast gives the remainder to installment N: 1000.00/3 = 333.33, 333.33, 333.34
	RemainderLast RemainderPolicy = "last"
)

// DefaultRemainderPolicy is used when no policy is configured
const DefaultRemainderPolicy = RemainderFirst

// ParseRemainderPolicy parses a configured policy name; empty selects the default
func ParseRemainderPolicy(s string) (RemainderPolicy, error) {
	switch RemainderPolicy(s) {
	case "":
		return DefaultRemainderPolicy, nil
	case RemainderFirst, RemainderLast:
		return RemainderPolicy(s), nil
	}
	return "", newValidationError(CodeInvalidRemainderPolicy, fmt.Sprintf("unknown remainder policy %q", s))
}

// Installment is one payable (or receivable) slice of a validated entry
type Installment struct {
	shared.BaseEntity
	EntryID           uuid.UUID          `json:"entry_id"`
	SequenceNumber    int                `json:"sequence_number"`
	TotalInstallments int                `json:"total_installments"`
	Amount            valueobject.Money  `json:"amount"`
	DueDate           time.Time          `json:"due_date"`
	PaymentStatus     PaymentStatus      `json:"payment_status"`
	PaidDate          *time.Time         `json:"paid_date,omitempty"`
	PaidAmount        *valueobject.Money `json:"paid_amount,omitempty"`
}

// IsPaid returns true if the installment has been settled
func (i *Installment) IsPaid() bool {
	return i.PaymentStatus == PaymentStatusPaid
}

// MarkPaid settles the installment. paidDate and paidAmount are recorded as given.
func (i *Installment) MarkPaid(paidDate time.Time, paidAmount valueobject.Money) error {
	if i.IsPaid() {
		return shared.NewConflictError(CodeInstallmentAlreadyPaid,
			fmt.Sprintf("installment %d/%d is already paid", i.SequenceNumber, i.TotalInstallments))
	}
	if paidAmount.IsNegative() {
		return newValidationError(CodeInvalidAmount, "paid amount cannot be negative")
	}
	date := DateOf(paidDate)
	i.PaymentStatus = PaymentStatusPaid
	i.PaidDate = &date
	i.PaidAmount = &paidAmount
	i.Touch()
	return nil
}

// Allocate splits total into n monthly installments using the default remainder policy
func Allocate(total valueobject.Money, n int, baseDate time.Time) ([]Installment, error) {
	return AllocateWithPolicy(total, n, baseDate, DefaultRemainderPolicy)
}

// AllocateWithPolicy splits total into n installments. Each installment gets
// floor(total/n) in minor units and the one selected by policy also gets the
// remainder, so the amounts sum to total exactly. Installment i (0-based) is due
// i months after baseDate, keeping baseDate's day when the month has it.
func AllocateWithPolicy(total valueobject.Money, n int, baseDate time.Time, policy RemainderPolicy) ([]Installment, error) {
	if n < 1 {
		return nil, newValidationError(CodeInvalidInstallmentCount, fmt.Sprintf("installment count must be at least 1, got %d", n))
	}
	if total.IsNegative() {
		return nil, newValidationError(CodeInvalidAmount, "total amount cannot be negative")
	}

	part, remainder, err := total.FloorDiv(n)
	if err != nil {
		return nil, newValidationError(CodeInvalidInstallmentCount, err.Error())
	}

	holder := 0
	if policy == RemainderLast {
		holder = n - 1
	}

	base := DateOf(baseDate)
	installments := make([]Installment, n)
	for i := range n {
		amount := part
		if i == holder {
			amount = amount.Add(remainder)
		}
		installments[i] = Installment{
			BaseEntity:        shared.NewBaseEntity(),
			SequenceNumber:    i + 1,
			TotalInstallments: n,
			Amount:            amount,
			DueDate:           AddMonthsClamped(base, i, base.Day()),
			PaymentStatus:     PaymentStatusPending,
		}
	}
	return installments, nil
}
