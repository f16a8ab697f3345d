package core

import (
	"math"
	"sort"
)

// Budget is the aggregate root for one (user, profile) sub-ledger. It owns
// every contained entity; nothing is shared across scopes. All mutation
// methods keep account and card balances consistent with the transaction
// lists, using by-name source lookup — a dangling source name is tolerated,
// never an error.
type Budget struct {
	Accounts []Account     `json:"accounts"`
	Cards    []CreditCard  `json:"cards"`
	Debts    []Debt        `json:"debts"`
	Incomes  []Transaction `json:"incomes"`
	Expenses []Transaction `json:"expenses"`
	Goals    []Goal        `json:"goals"`
}

// NewDefaultBudget is the budget a scope starts with before anything is
// stored: one debit account and one card with the conventional cut/pay days.
func NewDefaultBudget() *Budget {
	return &Budget{
		Accounts: []Account{{Name: "Payroll Account", Type: Debit}},
		Cards:    []CreditCard{{Name: "Primary Card", CutDay: 15, PayDay: 5}},
	}
}

// MonthlyTotal sums the amounts of the transactions dated in (year, month).
func MonthlyTotal(txs []Transaction, year, month int) Money {
	var total int64
	for _, t := range txs {
		if t.Date.InMonth(year, month) {
			total += t.Amount.Cents
		}
	}
	return Money{Cents: total}
}

// Cashflow is income minus expense for one calendar month. Recomputed from
// the full lists on every call; volumes are personal-scale.
func (b *Budget) Cashflow(year, month int) Money {
	return Money{Cents: MonthlyTotal(b.Incomes, year, month).Cents - MonthlyTotal(b.Expenses, year, month).Cents}
}

// FindAccount resolves a source name to an account, or nil.
func (b *Budget) FindAccount(name string) *Account {
	for i := range b.Accounts {
		if b.Accounts[i].Name == name {
			return &b.Accounts[i]
		}
	}
	return nil
}

// FindCard resolves a source name to a credit card, or nil.
func (b *Budget) FindCard(name string) *CreditCard {
	for i := range b.Cards {
		if b.Cards[i].Name == name {
			return &b.Cards[i]
		}
	}
	return nil
}

func (b *Budget) firstDebitAccount() *Account {
	for i := range b.Accounts {
		if b.Accounts[i].Type == Debit {
			return &b.Accounts[i]
		}
	}
	return nil
}

// RecordIncome appends an income transaction and applies its balance effect:
// a matching account gains the amount, a matching card has its outstanding
// balance reduced (the card acting as destination of credit).
func (b *Budget) RecordIncome(t Transaction) error {
	if err := t.Validate(); err != nil {
		return err
	}
	if acc := b.FindAccount(t.Source); acc != nil {
		acc.Balance.Cents += t.Amount.Cents
	}
	if card := b.FindCard(t.Source); card != nil {
		card.Balance.Cents -= t.Amount.Cents
	}
	b.Incomes = append(b.Incomes, t)
	return nil
}

// RecordExpense appends an expense transaction. A matching account loses the
// amount; a matching card grows its outstanding balance and, when it carries
// a cash-back rate, the rebate reduces the card balance and is credited to
// the first debit account. Routing to the first debit account regardless of
// the paying source is intentional policy.
func (b *Budget) RecordExpense(t Transaction) error {
	if err := t.ValidateExpense(); err != nil {
		return err
	}
	if acc := b.FindAccount(t.Source); acc != nil {
		acc.Balance.Cents -= t.Amount.Cents
	}
	if card := b.FindCard(t.Source); card != nil {
		card.Balance.Cents += t.Amount.Cents
		if card.Cashback != 0 {
			cb := int64(math.Round(float64(t.Amount.Cents) * card.Cashback / 100))
			card.Balance.Cents -= cb
			if acc := b.firstDebitAccount(); acc != nil {
				acc.Balance.Cents += cb
			}
		}
	}
	b.Expenses = append(b.Expenses, t)
	return nil
}

// DeleteIncome removes the income at index i and reverses its balance effect
// using the same source lookup rules, inverted. When the source no longer
// resolves only the record is removed; the second return value reports
// whether any balance was touched.
func (b *Budget) DeleteIncome(i int) (Transaction, bool, error) {
	if i < 0 || i >= len(b.Incomes) {
		return Transaction{}, false, ErrIndexOutOfRange
	}
	t := b.Incomes[i]
	b.Incomes = append(b.Incomes[:i], b.Incomes[i+1:]...)
	reversed := false
	if acc := b.FindAccount(t.Source); acc != nil {
		acc.Balance.Cents -= t.Amount.Cents
		reversed = true
	}
	if card := b.FindCard(t.Source); card != nil {
		card.Balance.Cents += t.Amount.Cents
		reversed = true
	}
	return t, reversed, nil
}

// DeleteExpense mirrors DeleteIncome for the expense list. Cash-back granted
// at recording time is not reclaimed; deletion reverses only the principal
// amount, matching the recording lookup rules inverted.
func (b *Budget) DeleteExpense(i int) (Transaction, bool, error) {
	if i < 0 || i >= len(b.Expenses) {
		return Transaction{}, false, ErrIndexOutOfRange
	}
	t := b.Expenses[i]
	b.Expenses = append(b.Expenses[:i], b.Expenses[i+1:]...)
	reversed := false
	if acc := b.FindAccount(t.Source); acc != nil {
		acc.Balance.Cents += t.Amount.Cents
		reversed = true
	}
	if card := b.FindCard(t.Source); card != nil {
		card.Balance.Cents -= t.Amount.Cents
		reversed = true
	}
	return t, reversed, nil
}

// DeleteIncomes removes the incomes at the given positions, interpreting the
// indices against the list as it was before any removal. Internally they are
// applied in descending order so earlier removals cannot shift later ones.
// Returns the removed transactions and how many had their balance reversed.
func (b *Budget) DeleteIncomes(indices []int) ([]Transaction, int, error) {
	return deleteAt(indices, len(b.Incomes), b.DeleteIncome)
}

// DeleteExpenses is the expense-list counterpart of DeleteIncomes.
func (b *Budget) DeleteExpenses(indices []int) ([]Transaction, int, error) {
	return deleteAt(indices, len(b.Expenses), b.DeleteExpense)
}

func deleteAt(indices []int, length int, del func(int) (Transaction, bool, error)) ([]Transaction, int, error) {
	seen := make(map[int]struct{}, len(indices))
	order := make([]int, 0, len(indices))
	for _, i := range indices {
		if i < 0 || i >= length {
			return nil, 0, ErrIndexOutOfRange
		}
		if _, dup := seen[i]; dup {
			continue
		}
		seen[i] = struct{}{}
		order = append(order, i)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(order)))

	removed := make([]Transaction, 0, len(order))
	reversedCount := 0
	for _, i := range order {
		t, reversed, err := del(i)
		if err != nil {
			return removed, reversedCount, err
		}
		if reversed {
			reversedCount++
		}
		removed = append(removed, t)
	}
	return removed, reversedCount, nil
}

// AddGoalContribution increments the saved amount of the goal at index i.
// Informational tracking only: no money moves between accounts.
func (b *Budget) AddGoalContribution(i int, amount Money) error {
	if i < 0 || i >= len(b.Goals) {
		return ErrIndexOutOfRange
	}
	if amount.Cents <= 0 {
		return ErrInvalidAmount
	}
	b.Goals[i].Saved.Cents += amount.Cents
	return nil
}

// AddAccount appends an account. Name uniqueness is a presentation concern;
// the aggregate only rejects empty names.
func (b *Budget) AddAccount(a Account) error {
	if a.Name == "" {
		return ErrEmptyName
	}
	b.Accounts = append(b.Accounts, a)
	return nil
}

// UpdateAccount replaces the account currently called name.
func (b *Budget) UpdateAccount(name string, a Account) error {
	if a.Name == "" {
		return ErrEmptyName
	}
	acc := b.FindAccount(name)
	if acc == nil {
		return ErrNotFound
	}
	*acc = a
	return nil
}

// RemoveAccount deletes the named account. Transactions keep referencing the
// old name; their future reversals degrade to record-only removal.
func (b *Budget) RemoveAccount(name string) error {
	for i := range b.Accounts {
		if b.Accounts[i].Name == name {
			b.Accounts = append(b.Accounts[:i], b.Accounts[i+1:]...)
			return nil
		}
	}
	return ErrNotFound
}

// AddCard appends a credit card, clamping its cut and pay days to [1,31].
func (b *Budget) AddCard(c CreditCard) error {
	if c.Name == "" {
		return ErrEmptyName
	}
	c.Normalize()
	b.Cards = append(b.Cards, c)
	return nil
}

func (b *Budget) UpdateCard(name string, c CreditCard) error {
	if c.Name == "" {
		return ErrEmptyName
	}
	card := b.FindCard(name)
	if card == nil {
		return ErrNotFound
	}
	c.Normalize()
	*card = c
	return nil
}

func (b *Budget) RemoveCard(name string) error {
	for i := range b.Cards {
		if b.Cards[i].Name == name {
			b.Cards = append(b.Cards[:i], b.Cards[i+1:]...)
			return nil
		}
	}
	return ErrNotFound
}

func (b *Budget) AddDebt(d Debt) error {
	if d.Name == "" {
		return ErrEmptyName
	}
	b.Debts = append(b.Debts, d)
	return nil
}

func (b *Budget) UpdateDebt(name string, d Debt) error {
	if d.Name == "" {
		return ErrEmptyName
	}
	for i := range b.Debts {
		if b.Debts[i].Name == name {
			b.Debts[i] = d
			return nil
		}
	}
	return ErrNotFound
}

func (b *Budget) RemoveDebt(name string) error {
	for i := range b.Debts {
		if b.Debts[i].Name == name {
			b.Debts = append(b.Debts[:i], b.Debts[i+1:]...)
			return nil
		}
	}
	return ErrNotFound
}

func (b *Budget) AddGoal(g Goal) error {
	if g.Name == "" {
		return ErrEmptyName
	}
	b.Goals = append(b.Goals, g)
	return nil
}

// UpdateGoal replaces the goal at index i. Goals may share names, so updates
// address them by position.
func (b *Budget) UpdateGoal(i int, g Goal) error {
	if i < 0 || i >= len(b.Goals) {
		return ErrIndexOutOfRange
	}
	if g.Name == "" {
		return ErrEmptyName
	}
	b.Goals[i] = g
	return nil
}

func (b *Budget) RemoveGoal(name string) error {
	for i := range b.Goals {
		if b.Goals[i].Name == name {
			b.Goals = append(b.Goals[:i], b.Goals[i+1:]...)
			return nil
		}
	}
	return ErrNotFound
}
