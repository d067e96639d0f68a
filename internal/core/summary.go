package core

// BalanceBreakdown holds the terms of the displayed account balance.
type BalanceBreakdown struct {
	InitialBalance Money
	SettledIncome  Money // settled income not earmarked to a goal
	CashOutflow    Money // paid expenses, excluding card charges but including paid invoices
}

// Balance is initial balance plus settled income minus cash outflow.
func (b BalanceBreakdown) Balance() Money {
	return b.InitialBalance.Add(b.SettledIncome).Sub(b.CashOutflow)
}
