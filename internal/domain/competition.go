package domain

import "time"

// Status is the lifecycle state of a tracked competition.
type Status string

const (
	StatusOngoing Status = "ONGOING"
	StatusEnded   Status = "ENDED"
)

// Category labels form a closed vocabulary shared with the record store.
const (
	CategoryCoding  = "wibe coding"
	CategoryMCP     = "MCP"
	CategoryAgent   = "AI智能体"
	CategoryVideo   = "AI视频"
	CategoryOther   = "其它"
	DefaultCategory = CategoryOther
)

// Categories lists every accepted category label.
var Categories = []string{CategoryCoding, CategoryMCP, CategoryAgent, CategoryVideo, CategoryOther}

// Difficulty levels, beginner to expert.
const (
	DifficultyL1      = "L1"
	DifficultyL2      = "L2"
	DifficultyL3      = "L3"
	DifficultyL4      = "L4"
	DefaultDifficulty = DifficultyL2
)

// Difficulties lists every accepted difficulty in ascending order.
var Difficulties = []string{DifficultyL1, DifficultyL2, DifficultyL3, DifficultyL4}

// Competition is the unit of storage in the record store.
type Competition struct {
	ID          string
	Title       string
	Link        string
	Status      Status
	Categories  []string
	Difficulty  string
	Platform    string
	Description string
}

// Listing is a single item produced by a site scanner before any enrichment.
type Listing struct {
	Name        string
	Link        string
	Description string
	Platform    string
	Start       *time.Time
	End         *time.Time
}

// DateRange is the best-effort start/end pair extracted from page text.
type DateRange struct {
	Start *time.Time
	End   *time.Time
}

// Labels carries category and difficulty assigned by a classifier.
type Labels struct {
	Categories []string
	Difficulty string
}

// Verdict is the external classifier's opinion on whether an item repeats an existing one.
type Verdict struct {
	IsDuplicate      bool    `json:"is_duplicate"`
	Confidence       float64 `json:"confidence"`
	Reason           string  `json:"reason"`
	MostSimilarTitle string  `json:"most_similar_title,omitempty"`
}

// Field names a searchable record attribute.
type Field string

const (
	FieldTitle Field = "title"
	FieldLink  Field = "link"
)

// Patch lists the mutable attributes of a stored competition.
type Patch struct {
	Status *Status
}
