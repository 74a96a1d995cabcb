package config

// DefaultClinicalKeywords returns the keyword set marking a question as
// in-domain for ICU/hospital medicine.
func DefaultClinicalKeywords() []string {
	return []string{
		"icu", "intensive care", "hospital", "clinical", "medical", "patient",
		"diagnosis", "treatment", "therapy", "medication", "drug", "surgery",
		"ventilator", "respiratory", "cardiac", "neurological", "sepsis",
		"acidosis", "ards", "blood gas", "vital signs", "monitoring",
		"protocol", "guideline", "standard", "criteria", "threshold",
		"vasopressor", "vasopressors", "pressor", "pressors", "vasopressin",
		"inotrope", "inotropes", "dobutamine", "norepinephrine",
		"shock", "cardiogenic shock", "titrate", "wean",
	}
}

// DefaultNonClinicalKeywords returns the off-domain vocabulary used by the
// guardrail's short-circuit veto.
func DefaultNonClinicalKeywords() []string {
	return []string{
		"cooking", "recipe", "food", "restaurant", "travel", "vacation",
		"entertainment", "movie", "music", "sports", "gaming", "technology",
		"programming", "business", "finance", "investment", "legal", "law",
		"education", "school", "university", "personal", "relationship",
		"weather", "politics", "news", "social media", "shopping",
	}
}

// DefaultClinicalPatterns returns regex templates for clinically phrased questions.
func DefaultClinicalPatterns() []string {
	return []string{
		`what.*(?:treatment|therapy|medication|drug|dose|protocol|guideline)`,
		`how.*(?:treat|manage|diagnose|monitor|assess)`,
		`when.*(?:start|stop|change|adjust)`,
		`what.*(?:criteria|threshold|normal|abnormal|range)`,
		`what.*(?:ventilator|respirator|oxygen|breathing)`,
		`what.*(?:blood|lab|test|result|value)`,
		`what.*(?:pressure|heart|cardiac|pulse|rhythm)`,
		`what.*(?:pain|sedation|analgesia|comfort)`,
		`what.*(?:infection|sepsis|antibiotic|fever)`,
		`what.*(?:nutrition|feeding|calorie|protein)`,
		`what.*(?:shock|vasopressor|pressors|vasopressin|inotrope|dobutamine|norepinephrine)`,
		`what.*(?:icu|intensive care|hospital|clinical|medical)`,
		`what.*(?:patient|case|scenario|situation)`,
	}
}
