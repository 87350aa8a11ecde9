package config

const (
	defaultLogDir                 = "~/.local/share/fapiao/logs"
	defaultAPIBind                = "127.0.0.1:7788"
	defaultSiliconFlowBaseURL     = "https://api.siliconflow.cn/v1"
	defaultSiliconFlowModel       = "Qwen/Qwen3-VL-32B-Instruct"
	defaultSiliconFlowTimeoutSecs = 45
	defaultNamingTemplate         = "{date}-{category}-{amount}"
	defaultConfidenceThreshold    = 0.65
	defaultLogFormat              = "console"
	defaultLogLevel               = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			LogDir:  defaultLogDir,
			APIBind: defaultAPIBind,
		},
		SiliconFlow: SiliconFlow{
			BaseURL:        defaultSiliconFlowBaseURL,
			Model:          defaultSiliconFlowModel,
			Models:         []string{defaultSiliconFlowModel},
			TimeoutSeconds: defaultSiliconFlowTimeoutSecs,
		},
		Naming: Naming{
			Template: defaultNamingTemplate,
		},
		Recognition: Recognition{
			ConfidenceThreshold: defaultConfidenceThreshold,
		},
		Categories: DefaultCategories(),
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}

// DefaultCategories returns the built-in category mapping. Order matters:
// earlier rules win keyword-weight ties during inference.
func DefaultCategories() []Category {
	return []Category{
		{Label: "餐饮", Keywords: []string{"餐饮", "餐厅", "饭店", "食品", "外卖"}},
		{Label: "培训服务", Keywords: []string{"培训", "课程", "教育", "服务费"}},
		{Label: "交通", Keywords: []string{"出租", "客运", "高铁", "机票", "打车", "滴滴"}},
		{Label: "办公", Keywords: []string{"办公", "文具", "耗材", "打印"}},
		{Label: "住宿", Keywords: []string{"住宿", "酒店", "宾馆"}},
	}
}
