package config

const (
	defaultMode                = "server"
	defaultOutputDir           = "~/articast/audio"
	defaultStateDir            = "~/.local/share/articast"
	defaultLogDir              = "~/.local/share/articast/logs"
	defaultFeedTitle           = "Articast"
	defaultFeedDescription     = "Articles converted to audio"
	defaultFeedBaseURL         = "http://localhost:8005"
	defaultFeedLanguage        = "es"
	defaultFeedFilename        = "podcast.xml"
	defaultServerBind          = "0.0.0.0:8005"
	defaultScheduleExpression  = "0 7 * * *"
	defaultRunTimeout          = 3600
	defaultTTSEngine           = EngineEdge
	defaultTTSVoice            = "es-ES-AlvaroNeural"
	defaultFallbackEngine      = EngineGTTS
	defaultFallbackVoice       = "es"
	defaultItemTimeout         = 600
	defaultFallbackAttempts    = 1
	defaultEdgeBinary          = "edge-tts"
	defaultGTTSBinary          = "gtts-cli"
	defaultHTTPModel           = "kokoro"
	defaultHTTPFormat          = "mp3"
	defaultHTTPSpeed           = 1.0
	defaultHTTPTimeoutSeconds  = 300
	defaultFFprobeBinary       = "ffprobe"
	defaultEstimateBitrateKbps = 140
	defaultSourceLimit         = 10
	defaultWallabagCategory    = "Wallabag"
	defaultReadingListCategory = "General"
	defaultLogFormat           = "console"
	defaultLogLevel            = "info"
	defaultLogRetentionDays    = 30
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Mode: defaultMode,
		Paths: Paths{
			OutputDir: defaultOutputDir,
			StateDir:  defaultStateDir,
			LogDir:    defaultLogDir,
		},
		Feed: Feed{
			Title:       defaultFeedTitle,
			Description: defaultFeedDescription,
			BaseURL:     defaultFeedBaseURL,
			Language:    defaultFeedLanguage,
			Author:      defaultFeedTitle,
			Filename:    defaultFeedFilename,
			GUID:        GUIDHash,
		},
		Server: Server{
			Bind: defaultServerBind,
		},
		Schedule: Schedule{
			Expression: defaultScheduleExpression,
			RunTimeout: defaultRunTimeout,
		},
		TTS: TTS{
			Engine:           defaultTTSEngine,
			Voice:            defaultTTSVoice,
			FallbackEngine:   defaultFallbackEngine,
			FallbackVoice:    defaultFallbackVoice,
			ItemTimeout:      defaultItemTimeout,
			FallbackAttempts: defaultFallbackAttempts,
			EdgeBinary:       defaultEdgeBinary,
			GTTSBinary:       defaultGTTSBinary,
			HTTP: HTTPEngine{
				Model:          defaultHTTPModel,
				Format:         defaultHTTPFormat,
				Speed:          defaultHTTPSpeed,
				TimeoutSeconds: defaultHTTPTimeoutSeconds,
			},
		},
		Duration: Duration{
			FFprobeBinary:       defaultFFprobeBinary,
			EstimateBitrateKbps: defaultEstimateBitrateKbps,
		},
		FreshRSS: FreshRSS{
			UnreadOnly: true,
			Limit:      defaultSourceLimit,
		},
		Wallabag: Wallabag{
			Category: defaultWallabagCategory,
			Limit:    defaultSourceLimit,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}
