package retrieval

// staticPolicies stands in for policy listing results until groups are
// populated in the Policy index.
var staticPolicies = []PolicySummary{
	{
		Title:       "Scope of Work and Exclusions",
		Instruction: "Clearly define the work included and explicitly list what’s excluded or considered optional. This protects against scope creep and misaligned expectations.",
	},
	{
		Title:       "Roles, Responsibilities, and Availability",
		Instruction: "Assign clear roles on both sides, including availability expectations (e.g., response times, validation delays). Clarify customer obligations (e.g., providing access, decision-makers).",
	},
	{
		Title:       "Project Milestones and Delay Handling",
		Instruction: "Define project milestones, planning assumptions, and what happens in case of delays (especially customer-side). Include rules for pausing/resuming the project, and how timeframes are recalculated.",
	},
	{
		Title:       "Billing, Payments, and Expenses",
		Instruction: "Describe the billing model (T&M, fixed price, capped), invoicing frequency, payment terms (e.g., 30 days net), and rules around travel or additional expenses.",
	},
	{
		Title:       "Change Management Process",
		Instruction: "Detail how changes to scope, budget, or timeline are handled through formal change requests, estimation, approval, and documented agreement.",
	},
}

// StaticPolicies returns a copy of the fixed policy topic list.
func StaticPolicies() []PolicySummary {
	return append([]PolicySummary(nil), staticPolicies...)
}
