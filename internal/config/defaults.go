package config

const (
	defaultDataDir        = "~/.local/share/jimeng"
	defaultOutputDir      = "./downloads"
	defaultBaseURL        = "https://jimeng.jianying.com"
	defaultAID            = 513695
	defaultAppVersion     = "5.8.0"
	defaultRequestDelay   = 1.0
	defaultMaxRetries     = 3
	defaultRetryDelay     = 2
	defaultTimeout        = 60
	defaultPollInterval   = 2
	defaultModel          = "3.1"
	defaultRatio          = "9:16"
	defaultVoice          = "zh-CN-YunzeNeural"
	defaultOutputFormat   = "audio-48khz-192kbitrate-mono-mp3"
	defaultMergeWords     = 10
	defaultDailyAllowance = 60
	defaultCostPerEntry   = 1
	defaultRetentionDays  = 7
	defaultLogFormat      = "console"
	defaultLogLevel       = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Params: Params{
			DefaultModel: defaultModel,
			DefaultRatio: defaultRatio,
			Models: map[string]Model{
				"2.0":  {RequestKey: "high_aes_general_v20:general_v2.0", RatioTable: "v2"},
				"2.0p": {RequestKey: "high_aes_general_v20_L:general_v2.0_L", RatioTable: "v2"},
				"2.1":  {RequestKey: "high_aes_general_v21_L:general_v2.1_L", RatioTable: "v2"},
				"xl":   {RequestKey: "text2img_xl_sft", RatioTable: "v2"},
				"3.0":  {RequestKey: "high_aes_general_v30l:general_v3.0_18b", RatioTable: "v3"},
				"3.1":  {RequestKey: "high_aes_general_v30l_art_fangzhou:general_v3.0_18b", RatioTable: "v3"},
			},
			RatioTables: map[string]map[string]Ratio{
				"v2": {
					"1:1":  {Width: 1024, Height: 1024},
					"9:16": {Width: 576, Height: 1024},
					"16:9": {Width: 1024, Height: 576},
					"21:9": {Width: 1195, Height: 512},
					"3:4":  {Width: 768, Height: 1024},
					"4:3":  {Width: 1024, Height: 768},
				},
				"v3": {
					"1:1":  {Width: 1328, Height: 1328},
					"9:16": {Width: 936, Height: 1664},
					"16:9": {Width: 1664, Height: 936},
					"21:9": {Width: 2016, Height: 864},
					"3:4":  {Width: 1104, Height: 1472},
					"4:3":  {Width: 1472, Height: 1104},
				},
			},
		},
		Generation: Generation{
			MaxRetries:   defaultMaxRetries,
			RetryDelay:   defaultRetryDelay,
			Timeout:      defaultTimeout,
			PollInterval: defaultPollInterval,
		},
		API: API{
			BaseURL:      defaultBaseURL,
			AID:          defaultAID,
			AppVersion:   defaultAppVersion,
			RequestDelay: defaultRequestDelay,
		},
		Speech: Speech{
			Voice:        defaultVoice,
			OutputFormat: defaultOutputFormat,
			MergeWords:   defaultMergeWords,
		},
		Quota: Quota{
			DailyAllowance: defaultDailyAllowance,
			CostPerEntry:   defaultCostPerEntry,
		},
		Storage: Storage{
			DataDir:       defaultDataDir,
			OutputDir:     defaultOutputDir,
			RetentionDays: defaultRetentionDays,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
