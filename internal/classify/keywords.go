package classify

import "github.com/reclamo/reclamo/internal/domain"

// The keyword tables below are the canonical classification fixtures. Entries
// are matched as lower-case substrings and each entry counts at most once per
// input. Order matters: it fixes the tie-break for equal match counts, so new
// entries may be appended but existing ones must not be reordered.

type categoryKeywords struct {
	category domain.Category
	keywords []string
}

var categoryTable = []categoryKeywords{
	{domain.CategoryHardware, []string{
		"computer", "laptop", "printer", "device", "hardware", "monitor",
		"keyboard", "mouse", "broken", "damaged", "physical", "equipment",
		"peripheral", "screen", "display", "power", "battery", "charger",
		"adapter", "port", "usb", "hdmi",
	}},
	{domain.CategorySoftware, []string{
		"software", "program", "application", "app", "system", "bug", "error",
		"crash", "freezing", "slow", "update", "upgrade", "install",
		"uninstall", "version", "compatibility", "windows", "mac", "linux",
		"operating system", "driver", "antivirus", "malware", "virus",
		"login", "password", "account",
	}},
	{domain.CategoryNetwork, []string{
		"network", "internet", "wifi", "connection", "server", "down", "slow",
		"access", "connectivity", "router", "modem", "ethernet", "wireless",
		"signal", "strength", "speed", "bandwidth", "latency", "ping", "dns",
		"ip address", "vpn", "proxy", "firewall", "security",
	}},
	{domain.CategoryService, []string{
		"service", "support", "help", "assistance", "response", "delay",
		"waiting", "customer service", "representative", "agent", "staff",
		"employee", "manager", "supervisor", "escalation", "resolution",
		"solution", "follow-up", "callback", "appointment", "schedule",
		"booking", "reservation", "cancellation",
	}},
	{domain.CategoryBilling, []string{
		"bill", "invoice", "payment", "charge", "subscription", "pricing",
		"cost", "fee", "overcharge", "refund", "credit", "debit",
		"transaction", "receipt", "statement", "account", "balance",
		"due date", "late fee", "discount", "promotion", "coupon", "plan",
		"package", "upgrade", "downgrade", "cancel",
	}},
}

type priorityKeywords struct {
	priority domain.Priority
	weight   float64
	keywords []string
}

// Tier weights bias the scan toward the severe tiers so that a single urgent
// indicator outweighs a couple of weak medium/low signals.
var priorityTable = []priorityKeywords{
	{domain.PriorityUrgent, 2.0, []string{
		"urgent", "emergency", "immediate", "critical", "asap", "serious",
		"severe", "outage", "danger", "safety", "life-threatening",
		"security breach", "hacked", "compromised", "data loss",
		"complete failure", "system down", "production stopped",
		"business impact", "revenue loss", "deadline", "today", "now",
		"immediately", "right away", "cannot work", "blocked", "stranded",
	}},
	{domain.PriorityHigh, 1.5, []string{
		"high", "important", "priority", "significant", "major", "crucial",
		"essential", "necessary", "required", "vital", "key", "primary",
		"main", "central", "core", "fundamental", "pressing",
		"urgent but not emergency", "as soon as possible", "affecting work",
		"productivity impact", "customer facing", "client",
		"deadline approaching", "tomorrow", "this week",
	}},
	{domain.PriorityMedium, 1.0, []string{
		"medium", "moderate", "average", "standard", "normal", "regular",
		"common", "typical", "usual", "ordinary", "conventional", "routine",
		"everyday", "general", "soon", "when convenient", "next few days",
		"this month", "partial functionality", "workaround available",
		"alternative solution",
	}},
	{domain.PriorityLow, 1.0, []string{
		"low", "minor", "trivial", "small", "not urgent", "when possible",
		"minimal", "insignificant", "negligible", "slight", "little",
		"marginal", "secondary", "auxiliary", "supplementary", "whenever",
		"no rush", "no hurry", "take your time", "eventually", "someday",
		"cosmetic issue", "enhancement", "nice to have",
		"improvement suggestion",
	}},
}
