package domain

import (
	"strconv"
	"time"

	"github.com/samber/lo"
)

// Settings is the single persisted configuration document. Every mutation
// goes through the settings repository, which refreshes LastUpdate and keeps
// the super admin present in AdminIDs.
type Settings struct {
	MonitoringEnabled bool              `json:"monitoring_enabled"`
	Keywords          []string          `json:"keywords"`
	Channels          map[string]string `json:"channels"` // canonical channel id (decimal string) -> display name
	AdminIDs          []int64           `json:"admin_ids"`
	BotMode           BotMode           `json:"bot_mode"`
	LastUpdate        time.Time         `json:"last_update"`
}

// DefaultKeywords seeds the keyword set on first run.
var DefaultKeywords = []string{"ищу", "wordpress"}

// NewDefaultSettings builds the document created on first run or after a
// corrupt settings file has been set aside.
func NewDefaultSettings(superAdminID int64, adminIDs []int64) *Settings {
	admins := lo.Uniq(append([]int64{superAdminID}, adminIDs...))
	return &Settings{
		MonitoringEnabled: true,
		Keywords:          append([]string(nil), DefaultKeywords...),
		Channels:          map[string]string{},
		AdminIDs:          admins,
		BotMode:           BotModeChannels,
		LastUpdate:        time.Now().UTC(),
	}
}

// ChannelName returns the display name for a canonical channel id.
func (s *Settings) ChannelName(channelID int64) (string, bool) {
	name, ok := s.Channels[strconv.FormatInt(channelID, 10)]
	return name, ok
}

// ChannelIDs returns the canonical ids of all monitored channels. Entries
// with non-numeric keys are skipped.
func (s *Settings) ChannelIDs() []int64 {
	ids := make([]int64, 0, len(s.Channels))
	for key := range s.Channels {
		id, err := strconv.ParseInt(key, 10, 64)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return ids
}

// ChannelMap returns the monitored channels keyed by canonical integer id.
func (s *Settings) ChannelMap() map[int64]string {
	channels := make(map[int64]string, len(s.Channels))
	for key, name := range s.Channels {
		id, err := strconv.ParseInt(key, 10, 64)
		if err != nil {
			continue
		}
		channels[id] = name
	}
	return channels
}

// HasAdmin reports whether the id is in the admin list.
func (s *Settings) HasAdmin(userID int64) bool {
	return lo.Contains(s.AdminIDs, userID)
}
