package decision

// Static provider orders. Components must select an order through
// SelectFallbackOrder rather than computing their own.
var (
	localOnlyOrder = []string{
		string(TargetOllama),
		string(TargetVLLM),
	}

	localFirstOrder = []string{
		string(TargetOllama),
		string(TargetVLLM),
		string(TargetOpenAI),
		string(TargetAnthropic),
		string(TargetGoogle),
	}

	cloudFirstOrder = []string{
		string(TargetOpenAI),
		string(TargetAnthropic),
		string(TargetGoogle),
		string(TargetOllama),
		string(TargetVLLM),
	}
)

// SelectFallbackOrder returns the ordered provider list for the given
// routing mode. Sensitive content always yields the local-only order,
// regardless of eco mode or complexity; eco mode is next; otherwise the
// complexity score decides between local-first and cloud-first.
// The returned slice is a copy and safe to mutate.
func SelectFallbackOrder(ecoMode, sensitive bool, complexityScore float64) []string {
	var order []string
	switch {
	case sensitive:
		order = localOnlyOrder
	case ecoMode:
		order = localOnlyOrder
	case complexityScore < HighComplexityFloor:
		order = localFirstOrder
	default:
		order = cloudFirstOrder
	}

	out := make([]string, len(order))
	copy(out, order)
	return out
}
