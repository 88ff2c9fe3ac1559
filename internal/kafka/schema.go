package kafka

// ReadingAccepted is emitted once for every reading the ingestion path stores.
type ReadingAccepted struct {
	DeviceID     string  `json:"device_id"`
	SerialNumber string  `json:"serial_number"`
	RecordNumber int64   `json:"record_number"`
	Timestamp    int64   `json:"timestamp"`
	Value        float64 `json:"value"`
	Unit         string  `json:"unit"`
}

// StructuredConnectRecord is the Kafka Connect JSON envelope with the schema inline.
type StructuredConnectRecord struct {
	Schema  Schema          `json:"schema"`
	Payload ReadingAccepted `json:"payload"`
}

type Schema struct {
	Type     string  `json:"type"`
	Name     string  `json:"name"`
	Fields   []Field `json:"fields"`
	Optional bool    `json:"optional"`
}

type Field struct {
	Field string `json:"field"`
	Type  string `json:"type"`
}

var ReadingSchema = Schema{
	Type:     "struct",
	Name:     "ReadingAccepted",
	Optional: false,
	Fields: []Field{
		{Field: "device_id", Type: "string"},
		{Field: "serial_number", Type: "string"},
		{Field: "record_number", Type: "int64"},
		{Field: "timestamp", Type: "int64"},
		{Field: "value", Type: "double"},
		{Field: "unit", Type: "string"},
	},
}
