package domain

const (
	defaultPageSize = 10
	maxPageSize     = 100
)

// Page selects a window of a list. Number starts from 1.
type Page struct {
	Number int
	Size   int
}

func NewPage(pageNumber, pageSize int) Page {
	pNumber := 1
	if pageNumber > 0 {
		pNumber = pageNumber
	}

	pSize := defaultPageSize
	if pageSize > 0 {
		pSize = pageSize
	}
	if pSize > maxPageSize {
		pSize = maxPageSize
	}

	return Page{
		Number: pNumber,
		Size:   pSize,
	}
}

// Offset returns the number of items to skip.
func (p Page) Offset() int {
	return (p.Number - 1) * p.Size
}

// LotFilter restricts lot listings. Zero values match everything.
type LotFilter struct {
	State LotState
	// Party matches lots where the key is either depositor or counterparty.
	Party string
	// Depositor matches the sent view, Counterparty the received one.
	Depositor    string
	Counterparty string
}

func (f LotFilter) Match(lot *DepositLot) bool {
	if f.State != LotStateUnspecified && lot.State != f.State {
		return false
	}
	if f.Party != "" && lot.Depositor != f.Party && lot.Counterparty != f.Party {
		return false
	}
	if f.Depositor != "" && lot.Depositor != f.Depositor {
		return false
	}
	if f.Counterparty != "" && lot.Counterparty != f.Counterparty {
		return false
	}
	return true
}
