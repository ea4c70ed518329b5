package config

const (
	defaultWorkDir           = "/tmp/riptide"
	defaultLogDir            = "~/.local/share/riptide/logs"
	defaultQueueBackend      = "sqs"
	defaultQueueRegion       = "us-east-1"
	defaultPollWaitSeconds   = 20
	defaultVisibilitySeconds = 600
	defaultHardwareDecoder   = "h264_nvv4l2dec"
	defaultVideoBitrate      = "2000k"
	defaultMaxRate           = "2500k"
	defaultBufferSize        = "4000k"
	defaultKeyframeFrames    = 180
	defaultSegmentSeconds    = 6
	defaultAudioBitrate      = "128k"
	defaultAudioSampleRate   = 48000
	defaultTileWidth         = 160
	defaultColumns           = 10
	defaultCapacity          = 100
	defaultMaxAttempts       = 3
	defaultLeaseExtension    = 300
	defaultLeaseInterval     = 240
	defaultErrorBackoff      = 5
	defaultConcurrency       = 1
	defaultCPUThreshold      = 75.0
	defaultMinFreeMemoryMB   = 500
	defaultMinFreeDiskGB     = 10
	defaultLogFormat         = "auto"
	defaultLogLevel          = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			WorkDir: defaultWorkDir,
			LogDir:  defaultLogDir,
		},
		Queue: Queue{
			Backend:           defaultQueueBackend,
			Region:            defaultQueueRegion,
			PollWaitSeconds:   defaultPollWaitSeconds,
			VisibilitySeconds: defaultVisibilitySeconds,
		},
		Transcode: Transcode{
			HardwareDecoder: defaultHardwareDecoder,
			VideoBitrate:    defaultVideoBitrate,
			MaxRate:         defaultMaxRate,
			BufferSize:      defaultBufferSize,
			KeyframeFrames:  defaultKeyframeFrames,
			SegmentSeconds:  defaultSegmentSeconds,
			AudioBitrate:    defaultAudioBitrate,
			AudioSampleRate: defaultAudioSampleRate,
		},
		Storyboard: Storyboard{
			Enabled:   true,
			TileWidth: defaultTileWidth,
			Columns:   defaultColumns,
			Capacity:  defaultCapacity,
		},
		Worker: Worker{
			MaxAttempts:           defaultMaxAttempts,
			LeaseExtensionSeconds: defaultLeaseExtension,
			LeaseIntervalSeconds:  defaultLeaseInterval,
			ErrorBackoffSeconds:   defaultErrorBackoff,
			Concurrency:           defaultConcurrency,
			CPUThresholdPercent:   defaultCPUThreshold,
			MinFreeMemoryMB:       defaultMinFreeMemoryMB,
			MinFreeDiskGB:         defaultMinFreeDiskGB,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
