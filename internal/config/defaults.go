package config

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8080,
		},
		Provider: ProviderConfig{
			Model:          "gpt-4.1-mini",
			APIKey:         "${OPENAI_API_KEY}",
			TimeoutSeconds: 60,
			MaxRetries:     2,
			RateLimitRPM:   150,
		},
		Pipeline: PipelineConfig{
			MaxDocumentMB:       20,
			FetchTimeoutSeconds: 20,
			AcquireAttempts:     2,
			MaxPages:            20,
			RenderDPI:           150,
			MaxImageDim:         2048,
			PageConcurrency:     4,
			DeadlineSeconds:     300,
			ClassifyReports:     true,
		},
		Aliases: DefaultAliases(),
	}
}

// DefaultAliases seeds the biomarker alias table with names commonly
// printed on lab reports. Config files can extend or override it.
func DefaultAliases() map[string][]string {
	return map[string][]string{
		"Hemoglobin":      {"Hb", "Hgb", "Haemoglobin"},
		"HbA1c":           {"Glycated Hemoglobin", "Hemoglobin A1c", "A1c"},
		"Vitamin D":       {"Vit D", "Vitamin D3", "25-OH Vitamin D", "25-Hydroxyvitamin D", "25(OH)D"},
		"Vitamin B12":     {"B12", "Vit B12", "Cobalamin"},
		"TSH":             {"Thyroid Stimulating Hormone", "Thyrotropin"},
		"Ferritin":        {"Serum Ferritin"},
		"Total Cholesterol": {"Cholesterol", "Cholesterol Total"},
		"HDL Cholesterol": {"HDL", "HDL-C", "HDL Chol"},
		"LDL Cholesterol": {"LDL", "LDL-C", "LDL Chol"},
		"Triglycerides":   {"TG", "Trigs"},
		"Glucose":         {"Fasting Glucose", "Blood Glucose", "FBS", "Glucose Fasting"},
		"Creatinine":      {"Serum Creatinine"},
		"ALT":             {"SGPT", "Alanine Aminotransferase"},
		"AST":             {"SGOT", "Aspartate Aminotransferase"},
		"CRP":             {"C-Reactive Protein", "hs-CRP"},
	}
}
