package config

import "time"

type SessionSvcCfg struct {
	SyncProgressInterval time.Duration
	ExpirySweepInterval  time.Duration
	SubmitRetryInterval  time.Duration
	SubmitRetryLimit     int
	SubmitRetryBatch     int
	// SubmitRetryBackoff is the pause before a failed delivery is retried
	SubmitRetryBackoff time.Duration
	// AttemptRetention is how long a draft outlives its deadline
	AttemptRetention   time.Duration
	TombstoneRetention time.Duration
}

func NewSessionSvcCfg() *SessionSvcCfg {
	return &SessionSvcCfg{
		SyncProgressInterval: getEnvSeconds("SYNC_PROGRESS_INTERVAL_SEC", 30),
		ExpirySweepInterval:  getEnvSeconds("EXPIRY_SWEEP_INTERVAL_SEC", 5),
		SubmitRetryInterval:  getEnvSeconds("SUBMIT_RETRY_INTERVAL_SEC", 15),
		SubmitRetryLimit:     getEnvInt("SUBMIT_RETRY_LIMIT", 10),
		SubmitRetryBatch:     getEnvInt("SUBMIT_RETRY_BATCH", 50),
		SubmitRetryBackoff:   getEnvSeconds("SUBMIT_RETRY_BACKOFF_SEC", 30),
		AttemptRetention:     time.Duration(getEnvInt("ATTEMPT_RETENTION_HOURS", 72)) * time.Hour,
		TombstoneRetention:   time.Duration(getEnvInt("TOMBSTONE_RETENTION_MIN", 60)) * time.Minute,
	}
}
