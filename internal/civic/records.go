// Package civic defines the normalized record shapes the pipeline lands in
// the destination stores. Field names are English; db tags carry the actual
// Spanish column names of the destination schema.
package civic

import "time"

// Chamber labels used in session ids and vote records.
const (
	ChamberDeputies = "Diputados"
	ChamberSenate   = "Senado"
)

// Session is one dated sitting of a chamber, written by discovery as a side
// artifact of the bill search. The id is synthetic: "<chamber-prefix>-<source-id>".
type Session struct {
	ID          string     `db:"id"`
	Chamber     string     `db:"camara"`
	Number      int        `db:"numero"`
	Legislature int        `db:"legislatura"`
	Date        *time.Time `db:"fecha"`
	Type        string     `db:"tipo"`
	UpdatedAt   time.Time  `db:"updated_at"`
}

// Bill is a legislative bill keyed by its boletín number (format NNNNN-DD).
// Discovery writes bare rows with only the key; the detail extractor
// enriches them on later runs.
type Bill struct {
	Bulletin       string     `db:"boletin"`
	Title          string     `db:"titulo"`
	FiledAt        *time.Time `db:"fecha_ingreso"`
	Initiative     string     `db:"iniciativa"`
	OriginChamber  string     `db:"camara_origen"`
	Urgency        string     `db:"urgencia_actual"`
	Stage          string     `db:"etapa"`
	TramitationURL string     `db:"link_tramitacion"`
	UpdatedAt      time.Time  `db:"updated_at"`
}

// Deputy is a lower-chamber legislator from the current roster.
type Deputy struct {
	ID              int       `db:"id"`
	FirstName       string    `db:"nombre"`
	PaternalSurname string    `db:"apellido_paterno"`
	MaternalSurname string    `db:"apellido_materno"`
	Party           string    `db:"partido"`
	District        string    `db:"distrito"`
	PhotoURL        string    `db:"url_foto"`
	UpdatedAt       time.Time `db:"updated_at"`
}

// Senator is an upper-chamber legislator from the current roster.
type Senator struct {
	ID              int       `db:"id"`
	FirstName       string    `db:"nombre"`
	PaternalSurname string    `db:"apellido_paterno"`
	MaternalSurname string    `db:"apellido_materno"`
	Party           string    `db:"partido"`
	Region          string    `db:"region"`
	Constituency    string    `db:"circunscripcion"`
	Email           string    `db:"email"`
	Phone           string    `db:"telefono"`
	PhotoURL        string    `db:"url_foto"`
	UpdatedAt       time.Time `db:"updated_at"`
}

// FloorVote is a roll-call vote header. Cámara votes carry the source's
// native id; Senado votes get a synthesized id in the disjoint high band
// (see the identity package).
type FloorVote struct {
	ID        int64      `db:"id"`
	Bulletin  string     `db:"boletin"`
	Date      *time.Time `db:"fecha"`
	Subject   string     `db:"materia"`
	Outcome   string     `db:"resultado"`
	Quorum    string     `db:"quorum"`
	VoteType  string     `db:"tipo_votacion"`
	UpdatedAt time.Time  `db:"updated_at"`
}

// VoteRecord is one legislator's ballot within a floor vote. Rows are
// append-only; there is no conflict key, so re-runs append and downstream
// consumers deduplicate.
type VoteRecord struct {
	VoteID         int64  `db:"votacion_id"`
	LegislatorID   int    `db:"parlamentario_id"`
	Chamber        string `db:"camara"`
	LegislatorName string `db:"nombre_parlamentario"`
	Choice         string `db:"opcion_voto"`
}

// ProcurementOrder is a purchase order from the MercadoPublico API.
type ProcurementOrder struct {
	Code         string    `db:"codigo"`
	Date         time.Time `db:"fecha"`
	Agency       string    `db:"organismo"`
	Amount       float64   `db:"monto"`
	Currency     string    `db:"moneda"`
	Status       string    `db:"estado"`
	Kind         string    `db:"tipo"`
	Description  string    `db:"descripcion"`
	Sector       string    `db:"sector"`
	SupplierRUT  string    `db:"proveedor_rut"`
	SupplierName string    `db:"proveedor_nombre"`
}

// Tender is a public tender (licitación) from the MercadoPublico API.
type Tender struct {
	Code        string     `db:"codigo"`
	Name        string     `db:"nombre"`
	Status      string     `db:"estado"`
	BuyerName   string     `db:"comprador_nombre"`
	BuyerCode   string     `db:"comprador_codigo"`
	PublishedAt *time.Time `db:"fecha_publicacion"`
	ClosesAt    *time.Time `db:"fecha_cierre"`
	Currency    string     `db:"moneda"`
	Estimate    float64    `db:"monto_estimado"`
	Kind        string     `db:"tipo"`
}

// Supplier is a vendor keyed by RUT, the Chilean tax identifier.
type Supplier struct {
	RUT  string `db:"rut"`
	Name string `db:"nombre"`
}
