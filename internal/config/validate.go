package config

import (
	"errors"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateRecognition(); err != nil {
		return err
	}
	if err := c.validateCategories(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateRecognition() error {
	if c.Recognition.ConfidenceThreshold < 0 || c.Recognition.ConfidenceThreshold > 1 {
		return errors.New("recognition.confidence_threshold must be between 0 and 1")
	}
	return nil
}

// validateCategories keeps the fallback label reserved. A rule with no
// keywords is legal: it simply never matches.
func (c *Config) validateCategories() error {
	for _, rule := range c.Categories {
		if rule.Label == "其他" {
			return errors.New(`categories must not define the fallback label "其他"`)
		}
	}
	return nil
}
