package httpapi

import (
	"time"

	"github.com/portero-acs/portero/internal/portero/store"
)

type accessLogDTO struct {
	Timestamp         string `json:"timestamp"`
	UIDAttempted      string `json:"uid_attempted"`
	KeyfobID          *int64 `json:"keyfob_id,omitempty"`
	Granted           bool   `json:"granted"`
	Reason            string `json:"reason"`
	KeyfobDescription string `json:"keyfob_description,omitempty"`
	DoorName          string `json:"door_name"`
}

func toAccessLogDTOs(recs []store.AccessLogRecord) []accessLogDTO {
	out := make([]accessLogDTO, 0, len(recs))
	for _, r := range recs {
		out = append(out, accessLogDTO{
			Timestamp:         r.Timestamp.UTC().Format(time.RFC3339Nano),
			UIDAttempted:      r.UIDAttempted,
			KeyfobID:          r.KeyfobID,
			Granted:           r.Granted,
			Reason:            r.Reason,
			KeyfobDescription: r.KeyfobDescription,
			DoorName:          r.DoorName,
		})
	}
	return out
}

type systemEventDTO struct {
	Timestamp string `json:"timestamp"`
	Level     string `json:"level"`
	EventType string `json:"event_type"`
	Message   string `json:"message,omitempty"`
}

func toEventDTOs(recs []store.SystemEventRecord) []systemEventDTO {
	out := make([]systemEventDTO, 0, len(recs))
	for _, r := range recs {
		out = append(out, systemEventDTO{
			Timestamp: r.Timestamp.UTC().Format(time.RFC3339Nano),
			Level:     r.Level,
			EventType: r.EventType,
			Message:   r.Message,
		})
	}
	return out
}
