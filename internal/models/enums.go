package models

import "fmt"

// SplitType selects how an expense amount is divided among participants.
type SplitType int

const (
	SplitUnknown SplitType = iota
	SplitEqual
	SplitExact
	SplitPercentage
	SplitShares
)

var splitTypeNames = map[SplitType]string{
	SplitEqual:      "EQUAL",
	SplitExact:      "EXACT",
	SplitPercentage: "PERCENTAGE",
	SplitShares:     "SHARES",
}

func (t SplitType) String() string {
	if name, ok := splitTypeNames[t]; ok {
		return name
	}
	return "UNKNOWN"
}

// Valid reports whether t is one of the defined split types.
func (t SplitType) Valid() bool {
	_, ok := splitTypeNames[t]
	return ok
}

// ParseSplitType converts a wire name such as "EQUAL" into a SplitType.
func ParseSplitType(s string) (SplitType, error) {
	for t, name := range splitTypeNames {
		if name == s {
			return t, nil
		}
	}
	return SplitUnknown, fmt.Errorf("invalid split type %q", s)
}

func (t SplitType) MarshalText() ([]byte, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("invalid split type %d", int(t))
	}
	return []byte(t.String()), nil
}

func (t *SplitType) UnmarshalText(b []byte) error {
	parsed, err := ParseSplitType(string(b))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// SettlementStatus is the lifecycle state of a settlement.
// PENDING is initial; COMPLETED and CANCELLED are terminal.
type SettlementStatus int

const (
	StatusUnknown SettlementStatus = iota
	StatusPending
	StatusCompleted
	StatusCancelled
)

var statusNames = map[SettlementStatus]string{
	StatusPending:   "PENDING",
	StatusCompleted: "COMPLETED",
	StatusCancelled: "CANCELLED",
}

func (s SettlementStatus) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return "UNKNOWN"
}

// Terminal reports whether no further transitions are allowed from s.
func (s SettlementStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// ParseSettlementStatus converts a wire name into a SettlementStatus.
func ParseSettlementStatus(s string) (SettlementStatus, error) {
	for st, name := range statusNames {
		if name == s {
			return st, nil
		}
	}
	return StatusUnknown, fmt.Errorf("invalid settlement status %q", s)
}

func (s SettlementStatus) MarshalText() ([]byte, error) {
	if _, ok := statusNames[s]; !ok {
		return nil, fmt.Errorf("invalid settlement status %d", int(s))
	}
	return []byte(s.String()), nil
}

func (s *SettlementStatus) UnmarshalText(b []byte) error {
	parsed, err := ParseSettlementStatus(string(b))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// SettlementMethod records how a settlement was (or will be) paid.
type SettlementMethod int

const (
	MethodUnknown SettlementMethod = iota
	MethodCash
	MethodUPI
	MethodBankTransfer
	MethodCard
	MethodOther
)

var methodNames = map[SettlementMethod]string{
	MethodCash:         "CASH",
	MethodUPI:          "UPI",
	MethodBankTransfer: "BANK_TRANSFER",
	MethodCard:         "CARD",
	MethodOther:        "OTHER",
}

func (m SettlementMethod) String() string {
	if name, ok := methodNames[m]; ok {
		return name
	}
	return "UNKNOWN"
}

// ParseSettlementMethod converts a wire name into a SettlementMethod.
func ParseSettlementMethod(s string) (SettlementMethod, error) {
	for m, name := range methodNames {
		if name == s {
			return m, nil
		}
	}
	return MethodUnknown, fmt.Errorf("invalid settlement method %q", s)
}

func (m SettlementMethod) MarshalText() ([]byte, error) {
	if _, ok := methodNames[m]; !ok {
		return nil, fmt.Errorf("invalid settlement method %d", int(m))
	}
	return []byte(m.String()), nil
}

func (m *SettlementMethod) UnmarshalText(b []byte) error {
	parsed, err := ParseSettlementMethod(string(b))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// ActivityType names the mutation an Activity records.
type ActivityType string

const (
	ActivityExpenseCreated      ActivityType = "EXPENSE_CREATED"
	ActivityExpenseUpdated      ActivityType = "EXPENSE_UPDATED"
	ActivityExpenseDeleted      ActivityType = "EXPENSE_DELETED"
	ActivitySettlementMade      ActivityType = "SETTLEMENT_MADE"
	ActivitySettlementCompleted ActivityType = "SETTLEMENT_COMPLETED"
	ActivitySettlementCancelled ActivityType = "SETTLEMENT_CANCELLED"
)
