package payments

const (
	// Semua event reconciliation lewat satu topic; event type di header.
	TopicPaymentEvents = "payment.events"
)

// Partition key = order_id, supaya semua event 1 order maintain urutan.
func PartitionKey(orderID string) []byte { return []byte(orderID) }
