package taxonomy

// Default returns the built-in taxonomy used when the upstream categories
// endpoint is unreachable at session start. It mirrors the upstream defaults
// so the guided flow keeps working offline.
func Default() Taxonomy {
	return Taxonomy{
		"billing": {
			Name: "Billing Issue",
			Subcategories: map[string]Subcategory{
				"overcharged": {
					Name:    "Overcharged",
					Problem: "User is charged more than expected.",
					Solution: []string{
						"Check your latest invoice from the billing section.",
						"Compare it with the subscribed plan.",
						"If mismatch found, try reloading the plan or contact support.",
					},
				},
				"duplicate_charges": {
					Name:    "Duplicate Charges",
					Problem: "Same amount deducted multiple times.",
					Solution: []string{
						"Verify with your bank transaction history.",
						"If duplicate, contact support with the transaction IDs.",
					},
				},
				"wrong_plan": {
					Name:    "Wrong Plan Charged",
					Problem: "Billed for the wrong plan.",
					Solution: []string{
						"Go to Subscription settings.",
						"Validate the plan selected.",
						"Raise a support request if incorrect.",
					},
				},
			},
		},
		"technical": {
			Name: "Technical Problem",
			Subcategories: map[string]Subcategory{
				"app_crash": {
					Name:    "App Crash / Freeze",
					Problem: "App crashes or freezes on startup.",
					Solution: []string{
						"Restart the app.",
						"Clear app cache and try again.",
						"Reinstall if issue persists.",
					},
				},
				"feature_not_working": {
					Name:    "Feature Not Working",
					Problem: "Certain functionality is not responding.",
					Solution: []string{
						"Log out and log back in.",
						"Ensure the latest update is installed.",
						"Restart device.",
					},
				},
				"slow_performance": {
					Name:    "Slow Performance",
					Problem: "App is very slow to respond.",
					Solution: []string{
						"Clear cache and background apps.",
						"Ensure internet connection is stable.",
					},
				},
			},
		},
		"service": {
			Name: "Service Complaint",
			Subcategories: map[string]Subcategory{
				"unavailable_service": {
					Name:    "Unavailable Service",
					Problem: "Service not available in region.",
					Solution: []string{
						"Check service availability page.",
						"Contact support for region rollout info.",
					},
				},
				"poor_quality": {
					Name:    "Poor Service Quality",
					Problem: "Service is not up to mark.",
					Solution: []string{
						"Share feedback via in-app feedback form.",
						"Wait for service team response.",
					},
				},
				"delay": {
					Name:    "Delay in Service",
					Problem: "Delayed support or processing.",
					Solution: []string{
						"Check SLA mentioned in your plan.",
						"If overdue, contact customer care.",
					},
				},
			},
		},
		"feedback": {
			Name: "General Feedback",
			Subcategories: map[string]Subcategory{
				"suggestion": {
					Name:    "Suggestion",
					Problem: "User wants to share ideas.",
					Solution: []string{
						"Fill out suggestion form.",
						"Await response from innovation team.",
					},
				},
				"complaint": {
					Name:    "Complaint",
					Problem: "General dissatisfaction.",
					Solution: []string{
						"Submit feedback through chatbot.",
						"Escalation possible through \"Open Ticket\".",
					},
				},
				"appreciation": {
					Name:    "Appreciation",
					Problem: "Positive feedback.",
					Solution: []string{
						"Thank you! Your message is shared with the team.",
					},
				},
			},
		},
		"account": {
			Name: "Account Inquiry",
			Subcategories: map[string]Subcategory{
				"login_issue": {
					Name:    "Login Issue",
					Problem: "Cannot log in.",
					Solution: []string{
						"Use \"Forgot Password\".",
						"Try social login if applicable.",
					},
				},
				"profile_update": {
					Name:    "Profile Update",
					Problem: "Unable to update details.",
					Solution: []string{
						"Go to profile settings > Edit.",
						"Ensure all required fields are filled.",
					},
				},
				"account_deactivation": {
					Name:    "Account Deactivation",
					Problem: "Want to close account.",
					Solution: []string{
						"Visit Account Settings > Deactivate Account.",
					},
				},
			},
		},
		"other": {
			Name: "Other Issue",
			Subcategories: map[string]Subcategory{
				"not_listed": {
					Name:    "Not Listed Above",
					Problem: "Unique issue not covered.",
					Solution: []string{
						"Click \"Open Ticket\".",
						"Fill in issue description.",
						"Wait for ticket assignment.",
					},
				},
			},
		},
	}
}
