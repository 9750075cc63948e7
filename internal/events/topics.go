package events

const (
	TopicDropLifecycle = "drop.lifecycle"
	TopicDropValue     = "drop.value.changed"
	TopicStockChanged  = "catalog.stock.changed"
	TopicBookings      = "booking.events"
	TopicOrders        = "order.events"
	TopicNotifications = "notification.created"
)

// Partition key = aggregate id, so all events of one drop/booking/order keep their order.
func PartitionKey(id string) []byte { return []byte(id) }
