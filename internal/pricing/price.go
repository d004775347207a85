package pricing

// Price returns the list price in whole New Taiwan Dollars.
func Price(u UserType, p Plan) int {
	switch u {
	case UserNew:
		switch p {
		case PlanSingle:
			return 3000
		case PlanFull:
			return 10000
		case PlanDouble:
			return 18000
		case PlanTest:
			return 1
		}
	case UserReturning:
		switch p {
		case PlanSingle:
			return 2500
		case PlanFull:
			return 7000
		case PlanDouble:
			return 12000
		case PlanTest:
			return 1
		}
	}
	panic("pricing: no price for " + string(u) + "/" + string(p))
}

// Row is one line of the printable price table.
type Row struct {
	UserType UserType `json:"user_type"`
	Plan     Plan     `json:"plan"`
	Price    int      `json:"price"`
}

// Table returns every (user type, plan) price.
func Table() []Row {
	rows := make([]Row, 0, len(UserTypes)*len(Plans))
	for _, u := range UserTypes {
		for _, p := range Plans {
			rows = append(rows, Row{UserType: u, Plan: p, Price: Price(u, p)})
		}
	}
	return rows
}
