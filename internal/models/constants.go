package models

const (
	StatusConfirmada = "confirmada"
	StatusCancelada  = "cancelada"

	// StatusAll is the filter value that matches every status.
	StatusAll = "all"
)

const (
	FieldID          = "id"
	FieldNomeHospede = "nomeHospede"
	FieldEmail       = "email"
	FieldQuarto      = "quarto"
	FieldTipoQuarto  = "tipoQuarto"
	FieldDataEntrada = "dataEntrada"
	FieldDataSaida   = "dataSaida"
	FieldStatus      = "status"
	FieldDataCriacao = "dataCriacao"
)

const (
	// TimestampLayout matches JavaScript's Date.prototype.toISOString in UTC.
	TimestampLayout = "2006-01-02T15:04:05.000Z07:00"

	// DisplayDateLayout is the pt-BR day/month/year form used on cards and exports.
	DisplayDateLayout = "02/01/2006"

	// InputDateLayout is what <input type="date"> submits.
	InputDateLayout = "2006-01-02"
)
