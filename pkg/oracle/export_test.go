package oracle

// Test seams for the response-parsing internals.
var (
	ExtractJSONObject = extractJSONObject
	ParseEnvelope     = parseEnvelope
	ToAlert           = rawAlert.toAlert
)

type RawAlert = rawAlert
