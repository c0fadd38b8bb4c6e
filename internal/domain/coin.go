package domain

// Coin is a minted coin identified by three bounded components.
// Corresponds to coins table in PostgreSQL.
type Coin struct {
	ID         int64 // auto-assigned on insert
	Component1 int
	Component2 int
	Component3 int
	Value      int64 // identity.Compute(Component1, Component2, Component3)
}

// Components returns the component triple.
func (c *Coin) Components() [3]int {
	return [3]int{c.Component1, c.Component2, c.Component3}
}
