package storage

import (
	"encoding/json"

	"github.com/renato0307/farol/internal/domain"
	"github.com/renato0307/farol/internal/logging"
)

// sessionModelToDomain converts a SessionModel (GORM) to domain.Session
func sessionModelToDomain(m SessionModel) domain.Session {
	return domain.Session{
		Args:        decodeArgs(m.WorkDir, m.Args),
		Command:     m.Command,
		CreatedAt:   m.CreatedAt,
		ExecutionID: m.ExecutionID,
		LastOutput:  m.LastOutput,
		LastUpdated: m.LastUpdated,
		State:       domain.SessionState(m.State),
		Tool:        m.Tool,
		WorkDir:     m.WorkDir,
	}
}

// domainToSessionModel converts a domain.Session to SessionModel (GORM)
func domainToSessionModel(s domain.Session) SessionModel {
	return SessionModel{
		Args:        encodeArgs(s.Args),
		Command:     s.Command,
		CreatedAt:   s.CreatedAt,
		ExecutionID: s.ExecutionID,
		LastOutput:  s.LastOutput,
		LastUpdated: s.LastUpdated,
		State:       string(s.State),
		Tool:        s.Tool,
		WorkDir:     s.WorkDir,
	}
}

// Args are stored as a JSON array in a TEXT column.
func encodeArgs(args []string) string {
	if len(args) == 0 {
		return ""
	}
	data, err := json.Marshal(args)
	if err != nil {
		logging.Logger.Warn("failed to encode session args", "error", err)
		return ""
	}
	return string(data)
}

func decodeArgs(workDir, encoded string) []string {
	if encoded == "" {
		return nil
	}
	var args []string
	if err := json.Unmarshal([]byte(encoded), &args); err != nil {
		logging.Logger.Warn("failed to decode session args",
			"workdir", workDir, "error", err)
		return nil
	}
	return args
}
