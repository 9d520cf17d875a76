package sqlstore

import (
	"time"

	"github.com/mcoot/lanequeue/internal/model"
)

// queueRow is one waiting participant
type queueRow struct {
	ParticipantID string     `gorm:"primaryKey;type:varchar(64)"`
	DisplayName   string     `gorm:"type:varchar(64)"`
	Region        string     `gorm:"type:varchar(16)"`
	Rating        int        `gorm:"not null;default:0"`
	PrimaryLane   string     `gorm:"type:varchar(16)"`
	SecondaryLane string     `gorm:"type:varchar(16)"`
	IsBot         bool       `gorm:"not null;default:false"`
	Status        string     `gorm:"type:varchar(16);not null;default:available;index"`
	ClaimedAt     *time.Time `gorm:"index"`
	JoinedAt      time.Time  `gorm:"not null;index"`
}

func (queueRow) TableName() string { return "queue_entries" }

func newQueueRow(p *model.QueuedParticipant) queueRow {
	status := p.Status
	if status == "" {
		status = model.ProcessingAvailable
	}
	row := queueRow{
		ParticipantID: string(p.ID),
		DisplayName:   p.DisplayName,
		Region:        p.Region,
		Rating:        p.Rating,
		PrimaryLane:   string(p.PrimaryLane),
		SecondaryLane: string(p.SecondaryLane),
		IsBot:         p.IsBot,
		Status:        string(status),
		JoinedAt:      p.JoinedAt.UTC(),
	}
	if !p.ClaimedAt.IsZero() {
		at := p.ClaimedAt.UTC()
		row.ClaimedAt = &at
	}
	return row
}

func (r queueRow) toModel() model.QueuedParticipant {
	p := model.QueuedParticipant{
		ID:            model.ParticipantID(r.ParticipantID),
		DisplayName:   r.DisplayName,
		Region:        r.Region,
		Rating:        r.Rating,
		PrimaryLane:   model.Lane(r.PrimaryLane),
		SecondaryLane: model.Lane(r.SecondaryLane),
		IsBot:         r.IsBot,
		JoinedAt:      r.JoinedAt,
		Status:        model.ProcessingStatus(r.Status),
	}
	if r.ClaimedAt != nil {
		p.ClaimedAt = *r.ClaimedAt
	}
	return p
}

// matchRow is the match aggregate root; its rosters live in match_slots
type matchRow struct {
	ID          string         `gorm:"primaryKey;type:varchar(64)"`
	Status      string         `gorm:"type:varchar(32);not null;index"`
	TeamARating int            `gorm:"not null;default:0"`
	TeamBRating int            `gorm:"not null;default:0"`
	Slots       []matchSlotRow `gorm:"foreignKey:MatchID;constraint:OnDelete:CASCADE"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (matchRow) TableName() string { return "matches" }

// matchSlotRow places one participant on a side and lane
type matchSlotRow struct {
	ID            uint   `gorm:"primaryKey"`
	MatchID       string `gorm:"type:varchar(64);not null;index"`
	ParticipantID string `gorm:"type:varchar(64);not null;index"`
	Side          int    `gorm:"not null"`
	SlotIndex     int    `gorm:"not null"`
	Lane          string `gorm:"type:varchar(16);not null"`
	Rating        int    `gorm:"not null;default:0"`
}

func (matchSlotRow) TableName() string { return "match_slots" }

func newMatchRow(m *model.Match) matchRow {
	row := matchRow{
		ID:          string(m.ID),
		Status:      string(m.Status),
		TeamARating: m.TeamA.TotalRating,
		TeamBRating: m.TeamB.TotalRating,
		CreatedAt:   m.CreatedAt.UTC(),
		UpdatedAt:   m.UpdatedAt.UTC(),
	}
	for side, roster := range []model.Roster{m.TeamA, m.TeamB} {
		for i, slot := range roster.Slots {
			row.Slots = append(row.Slots, matchSlotRow{
				MatchID:       string(m.ID),
				ParticipantID: string(slot.ParticipantID),
				Side:          side,
				SlotIndex:     i,
				Lane:          string(slot.Lane),
				Rating:        slot.Rating,
			})
		}
	}
	return row
}

func (r matchRow) toModel() *model.Match {
	m := &model.Match{
		ID:        model.MatchID(r.ID),
		Status:    model.MatchStatus(r.Status),
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
	m.TeamA.TotalRating = r.TeamARating
	m.TeamB.TotalRating = r.TeamBRating
	for _, s := range r.Slots {
		slot := model.Slot{
			Lane:          model.Lane(s.Lane),
			ParticipantID: model.ParticipantID(s.ParticipantID),
			Rating:        s.Rating,
		}
		if model.Side(s.Side) == model.SideA {
			m.TeamA.Slots = append(m.TeamA.Slots, slot)
		} else {
			m.TeamB.Slots = append(m.TeamB.Slots, slot)
		}
	}
	return m
}
