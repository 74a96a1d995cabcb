package guardrail

// SuggestQuestions returns curated example questions within scope.
func SuggestQuestions() []string {
	return []string{
		"What are the standard ventilator settings for ARDS?",
		"What is the blood gas threshold for acidosis management?",
		"How do you manage septic shock in the ICU?",
		"What are the criteria for sepsis diagnosis?",
		"How do you titrate vasopressors in cardiogenic shock?",
		"What is the protocol for daily sedation interruption?",
		"How do you assess fluid responsiveness in ICU patients?",
		"What are the guidelines for central line insertion?",
		"How do you manage acute respiratory failure?",
		"What are the nutrition requirements for ICU patients?",
	}
}

// ScopeGuidance describes the question types the copilot handles.
func ScopeGuidance() string {
	return `I can help with clinical questions related to:

- ICU and hospital medicine protocols
- Critical care management (ventilators, hemodynamics, sedation)
- Clinical diagnosis and treatment guidelines
- Laboratory values and thresholds
- Medication dosing and management
- Patient monitoring and assessment
- Infection control and prevention
- Nutrition support in critical care
- Emergency and acute care protocols

Please ask questions about patient care, clinical protocols, or medical management within the ICU/hospital setting.`
}
