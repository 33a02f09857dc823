package config

// Defaults contains system-wide defaults: the LLM provider used when a call
// names none, and the information-completeness gate for auto_classify.
type Defaults struct {
	// LLMProvider names the registry entry used when a call site does not
	// pin a specific provider.
	LLMProvider string `yaml:"llm_provider,omitempty"`

	// InformationCompletenessThreshold is how many of the six key
	// indicators (frequency, volume, currentState, dataSensitivity,
	// systemsInvolved, painPoints) must be present before auto_classify is
	// permitted (spec §4.1, SPEC_FULL Open Question decision 2).
	InformationCompletenessThreshold int `yaml:"information_completeness_threshold,omitempty" validate:"omitempty,min=0,max=6"`
}
