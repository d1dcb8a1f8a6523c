package types

// GenerationOptions are sent with every generation call of one question.
// TopK has no chat-completions equivalent and only reaches Gemini.
type GenerationOptions struct {
	Temperature      float32  `mapstructure:"temperature" yaml:"temperature"`
	MaxNewTokens     int      `mapstructure:"max_new_tokens" yaml:"max_new_tokens"`
	TopK             int      `mapstructure:"top_k" yaml:"top_k"`
	TopP             float32  `mapstructure:"top_p" yaml:"top_p"`
	FrequencyPenalty float32  `mapstructure:"frequency_penalty" yaml:"frequency_penalty"`
	Stop             []string `mapstructure:"stop" yaml:"stop"`
	Seed             int      `mapstructure:"seed" yaml:"seed"`
	BestOf           int      `mapstructure:"best_of" yaml:"best_of"`
}

func DefaultGenerationOptions() GenerationOptions {
	return GenerationOptions{
		Temperature:      0,
		MaxNewTokens:     500,
		TopK:             50,
		TopP:             0.9,
		FrequencyPenalty: 0,
		Stop:             []string{".", "\n"},
		BestOf:           1,
	}
}
