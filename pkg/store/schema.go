package store

// ColumnType is the portable type of a result column.
type ColumnType int

const (
	Text ColumnType = iota
	Real
	Integer
)

// Column is one generated or copied field of a result table.
type Column struct {
	Name string
	Type ColumnType
}

// Table describes a destination table keyed by hotel_id. The id, hotel_id
// and updated_at columns are implicit.
type Table struct {
	Name    string
	Columns []Column
}

// Has reports whether col is a writable column of t.
func (t Table) Has(col string) bool {
	for _, c := range t.Columns {
		if c.Name == col {
			return true
		}
	}
	return false
}

// Result tables written by the built-in tasks.
var (
	RegeneratedTitles = Table{
		Name: "regenerated_titles",
		Columns: []Column{
			{"location", Text},
			{"original_title", Text},
			{"regenerated_title", Text},
			{"price", Real},
			{"rating", Real},
			{"address", Text},
			{"latitude", Real},
			{"longitude", Real},
			{"room_type", Text},
		},
	}
	TitleAndDescriptions = Table{
		Name: "title_and_descriptions",
		Columns: []Column{
			{"original_title", Text},
			{"regenerated_title", Text},
			{"description", Text},
		},
	}
	Summaries = Table{
		Name: "summaries",
		Columns: []Column{
			{"summary", Text},
		},
	}
	RatingsAndReviews = Table{
		Name: "ratings_and_reviews",
		Columns: []Column{
			{"rating", Real},
			{"review", Text},
		},
	}
)

// Tables lists every result table created on open.
var Tables = []Table{RegeneratedTitles, TitleAndDescriptions, Summaries, RatingsAndReviews}
