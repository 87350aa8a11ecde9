package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeSiliconFlow()
	c.normalizeNaming()
	c.normalizeCategories()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	c.Paths.APIBind = strings.TrimSpace(c.Paths.APIBind)
	if c.Paths.APIBind == "" {
		c.Paths.APIBind = defaultAPIBind
	}
	c.Paths.APIToken = strings.TrimSpace(c.Paths.APIToken)
	return nil
}

func (c *Config) normalizeSiliconFlow() {
	c.SiliconFlow.APIKey = strings.TrimSpace(c.SiliconFlow.APIKey)
	if c.SiliconFlow.APIKey == "" {
		if value, ok := os.LookupEnv("SILICONFLOW_API_KEY"); ok {
			c.SiliconFlow.APIKey = strings.TrimSpace(value)
		}
	}
	c.SiliconFlow.BaseURL = strings.TrimSpace(c.SiliconFlow.BaseURL)
	if c.SiliconFlow.BaseURL == "" {
		c.SiliconFlow.BaseURL = defaultSiliconFlowBaseURL
	}
	c.SiliconFlow.Model = strings.TrimSpace(c.SiliconFlow.Model)

	models := make([]string, 0, len(c.SiliconFlow.Models))
	seen := make(map[string]struct{}, len(c.SiliconFlow.Models))
	for _, model := range c.SiliconFlow.Models {
		trimmed := strings.TrimSpace(model)
		if trimmed == "" {
			continue
		}
		if _, exists := seen[trimmed]; exists {
			continue
		}
		seen[trimmed] = struct{}{}
		models = append(models, trimmed)
	}
	c.SiliconFlow.Models = models

	if c.SiliconFlow.Model == "" {
		if len(c.SiliconFlow.Models) > 0 {
			c.SiliconFlow.Model = c.SiliconFlow.Models[0]
		} else {
			c.SiliconFlow.Model = defaultSiliconFlowModel
		}
	}
	if len(c.SiliconFlow.Models) == 0 {
		c.SiliconFlow.Models = []string{c.SiliconFlow.Model}
	}
	if c.SiliconFlow.TimeoutSeconds <= 0 {
		c.SiliconFlow.TimeoutSeconds = defaultSiliconFlowTimeoutSecs
	}
}

func (c *Config) normalizeNaming() {
	c.Naming.Template = NormalizeTemplate(c.Naming.Template)
}

// NormalizeTemplate strips the extension placeholder and trailing separator
// noise from a filename template. The extension is always appended from the
// source file, so {ext} in a template would double it. An empty result falls
// back to the default template.
func NormalizeTemplate(template string) string {
	cleaned := strings.TrimSpace(template)
	cleaned = strings.ReplaceAll(cleaned, "{ext}", "")
	cleaned = strings.ReplaceAll(cleaned, "{EXT}", "")
	cleaned = strings.TrimRight(cleaned, " .-_")
	if cleaned == "" {
		return defaultNamingTemplate
	}
	return cleaned
}

func (c *Config) normalizeCategories() {
	rules := make([]Category, 0, len(c.Categories))
	for _, rule := range c.Categories {
		label := strings.TrimSpace(rule.Label)
		if label == "" {
			continue
		}
		keywords := make([]string, 0, len(rule.Keywords))
		for _, keyword := range rule.Keywords {
			if trimmed := strings.TrimSpace(keyword); trimmed != "" {
				keywords = append(keywords, trimmed)
			}
		}
		rules = append(rules, Category{Label: label, Keywords: keywords})
	}
	c.Categories = rules
	if len(c.Categories) == 0 {
		c.Categories = DefaultCategories()
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
