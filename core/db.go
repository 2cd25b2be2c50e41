package core

// DBOrdering is a single ORDER BY term. Field must come from a known column
// whitelist before it reaches a query.
type DBOrdering struct {
	Field     string
	Ascending bool
}

func (ord DBOrdering) String() string {
	direction := "DESC"
	if ord.Ascending {
		direction = "ASC"
	}
	return ord.Field + " " + direction
}
