package decision

// Complexity scoring constants. Scores range 0-10; the ceiling and floor
// split the range into local-preferred and cloud-preferred bands.
const (
	// CharsPerComplexityPoint is the number of task-content characters that
	// contribute one complexity point.
	CharsPerComplexityPoint = 500

	// CodeBlockBonus is added when the task content contains a fenced code block.
	CodeBlockBonus = 2

	// StructuredOutputBonus is added when the task requests structured output.
	StructuredOutputBonus = 1

	// LowComplexityCeiling is the highest score still considered low complexity.
	LowComplexityCeiling = 5

	// HighComplexityFloor is the lowest score considered high complexity.
	HighComplexityFloor = 6

	// MaxComplexityScore caps the score.
	MaxComplexityScore = 10
)

// TaskType is a coarse classification of the inbound task used to seed the
// complexity score.
type TaskType string

const (
	TaskTypeGeneric   TaskType = "generic"
	TaskTypeCreative  TaskType = "creative"
	TaskTypeSummarize TaskType = "summarize"
	TaskTypeCode      TaskType = "code"
	TaskTypeResearch  TaskType = "research"
)

// BaseComplexity returns the per-task-type base score.
func (t TaskType) BaseComplexity() float64 {
	switch t {
	case TaskTypeCreative:
		return 2
	case TaskTypeSummarize:
		return 2
	case TaskTypeCode:
		return 3
	case TaskTypeResearch:
		return 4
	default:
		return 1
	}
}
