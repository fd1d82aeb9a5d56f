package handlers

import (
	"bookify/services/availability"
	"bookify/services/booking"
	"bookify/services/calendar"
)

// HandlerBundle groups the endpoint handlers' dependencies into one struct.
type HandlerBundle struct {
	Booking      booking.Service
	Availability *availability.Resolver
	Calendar     calendar.Service

	// DefaultDurationMinutes is used when an availability query omits the
	// duration parameter.
	DefaultDurationMinutes int
}
