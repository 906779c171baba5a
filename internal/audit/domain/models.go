package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// Direction marks where an entry sits relative to an external exchange.
type Direction string

const (
	DirectionBefore  Direction = "BEFORE"
	DirectionAfter   Direction = "AFTER"
	DirectionInbound Direction = "INBOUND"
)

// Kind classifies what was exchanged.
type Kind string

const (
	KindVedtak              Kind = "VEDTAK"
	KindKravgrunnlagHent    Kind = "KRAVGRUNNLAG_HENT"
	KindKravgrunnlagMottatt Kind = "KRAVGRUNNLAG_MOTTATT"
	KindKravstatusMottatt   Kind = "KRAVSTATUS_MOTTATT"
	KindOppdragSendt        Kind = "OPPDRAG_SENDT"
	KindKvitteringMottatt   Kind = "KVITTERING_MOTTATT"
)

// Hendelse is one append-only audit row. Rows are never updated or deleted.
type Hendelse struct {
	ID            snowflake.ID   `gorm:"primaryKey" json:"id"`
	CaseRef       string         `gorm:"not null;index" json:"case_ref"`
	Kind          Kind           `gorm:"not null" json:"kind"`
	Direction     Direction      `gorm:"not null" json:"direction"`
	CorrelationID string         `json:"correlation_id,omitempty"`
	Payload       datatypes.JSON `json:"payload"`
	CreatedAt     time.Time      `gorm:"not null" json:"created_at"`
}

func (Hendelse) TableName() string { return "audit_hendelser" }
