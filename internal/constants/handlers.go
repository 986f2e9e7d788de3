package constants

import "time"

// File upload constants
const (
	// MaxUploadSize is the maximum image upload size in bytes (20MB)
	MaxUploadSize = 20 << 20

	// MaxAskBodySize is the maximum JSON body accepted by /api/ask (1MB)
	MaxAskBodySize = 1 << 20
)

// HTTP server constants
const (
	// RequestTimeout bounds every API request, including extraction and generation
	RequestTimeout = 2 * time.Minute

	// ShutdownTimeout is how long in-flight requests get on SIGINT/SIGTERM
	ShutdownTimeout = 30 * time.Second
)

// Client-facing messages. The web client matches on these strings.
const (
	MsgNoImage         = "No se envió ninguna imagen"
	MsgNoFace          = "No se detectó ninguna cara"
	MsgImageTooLarge   = "La imagen es demasiado grande"
	MsgUserNotFound    = "No se encontró usuario en la base de datos"
	MsgRecognizeFailed = "Error en el reconocimiento o comparación facial"
	MsgMissingParams   = "Faltan parámetros"
	MsgAskFailed       = "Error al obtener respuesta de la IA"
)
