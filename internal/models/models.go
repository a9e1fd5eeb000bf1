package models

import "time"

type Coord struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Location is a coordinate pair plus the human-readable address shown in
// offer and assignment payloads.
type Location struct {
	Lat     float64 `json:"lat"`
	Lng     float64 `json:"lng"`
	Address string  `json:"address"`
}

type Rider struct {
	UserID  string `json:"userId"`
	Name    string `json:"userName"`
	Phone   string `json:"userNumber"`
	Profile string `json:"userProfile,omitempty"`
}

// Candidate is an immutable snapshot of one ranked driver taken when the
// booking was created. Presence and geo are looked up live at offer time,
// never trusted from this snapshot.
type Candidate struct {
	DriverID      string  `json:"driverId"`
	Distance      float64 `json:"distance"`
	Rating        float64 `json:"rating"`
	CancelCount   int     `json:"cancelCount"`
	Score         float64 `json:"score"`
	Name          string  `json:"driverName,omitempty"`
	Photo         string  `json:"driverPhoto,omitempty"`
	Phone         string  `json:"phoneNumber,omitempty"`
	VehicleModel  string  `json:"vehicleModel,omitempty"`
	VehicleNumber string  `json:"vehicleNumber,omitempty"`
}

// DispatchRequest is the immutable booking intake. The candidate order is the
// offer order; the engine never re-sorts it.
type DispatchRequest struct {
	BookingID         string      `json:"bookingId"`
	RideID            string      `json:"rideId"`
	RequestID         string      `json:"requestId"`
	User              Rider       `json:"user"`
	Pickup            Location    `json:"pickup"`
	Drop              Location    `json:"drop"`
	Distance          string      `json:"distance"`
	EstimatedDuration string      `json:"estimatedDuration"`
	Price             float64     `json:"price"`
	Pin               int         `json:"pin"`
	Candidates        []Candidate `json:"candidates"`
	TimeoutSeconds    int         `json:"timeoutSeconds,omitempty"`
	CreatedAt         time.Time   `json:"createdAt"`
}

type DispatchStatus string

const (
	StatusPending   DispatchStatus = "pending"
	StatusOffered   DispatchStatus = "offered"
	StatusAssigned  DispatchStatus = "assigned"
	StatusExhausted DispatchStatus = "exhausted"
	StatusCancelled DispatchStatus = "cancelled"
)

// Terminal reports whether no further transition out of the status is legal.
func (s DispatchStatus) Terminal() bool {
	return s == StatusAssigned || s == StatusExhausted || s == StatusCancelled
}

// DispatchState is the mutable per-booking record. Version is a fencing
// token: every persisted mutation must be conditioned on the version that was
// read, and the store bumps it on each successful write.
type DispatchState struct {
	DispatchRequest
	Cursor    int            `json:"cursor"`
	Status    DispatchStatus `json:"status"`
	Version   int64          `json:"version"`
	OfferedAt time.Time      `json:"offeredAt,omitempty"`
}

// Current returns the candidate at the cursor, or false when the cursor has
// run past the list.
func (s *DispatchState) Current() (Candidate, bool) {
	if s.Cursor < 0 || s.Cursor >= len(s.Candidates) {
		return Candidate{}, false
	}
	return s.Candidates[s.Cursor], true
}

// OfferMessage is the materialized ride:request payload sent to exactly one
// candidate while that candidate's response window is open.
type OfferMessage struct {
	Customer       Rider        `json:"customer"`
	Booking        OfferBooking `json:"bookingDetails"`
	RequestTimeout int          `json:"requestTimeout"`
}

type OfferBooking struct {
	BookingID         string    `json:"bookingId"`
	RideID            string    `json:"rideId"`
	EstimatedDistance string    `json:"estimatedDistance"`
	EstimatedDuration string    `json:"estimatedDuration"`
	FareAmount        float64   `json:"fareAmount"`
	SecurityPin       int       `json:"securityPin"`
	VehicleType       string    `json:"vehicleType"`
	Pickup            Location  `json:"pickupLocation"`
	Drop              Location  `json:"dropoffLocation"`
	Status            string    `json:"status"`
	CreatedAt         time.Time `json:"createdAt"`
}

// DriverOutcome is published on driver.rejection for both rejections and
// timeouts; Reason distinguishes the two.
type DriverOutcome struct {
	DriverID  string    `json:"driverId"`
	BookingID string    `json:"bookingId"`
	RequestID string    `json:"requestId"`
	Reason    string    `json:"reason"`
	Timestamp time.Time `json:"timestamp"`
}

const (
	ReasonTimeout   = "timeout"
	ReasonRejection = "rejection"
)

// Assignment is published on driver.acceptance when a driver wins a booking.
type Assignment struct {
	BookingID string    `json:"bookingId"`
	RideID    string    `json:"rideId"`
	Driver    Candidate `json:"driver"`
	Coords    *Coord    `json:"driverCoordinates,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

type UserNotification struct {
	UserID    string    `json:"userId"`
	BookingID string    `json:"bookingId"`
	Type      string    `json:"type"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

const (
	NotifyDriverAssigned   = "driver_assigned"
	NotifyNoDrivers        = "no_drivers_available"
	NotifyBookingCancelled = "booking_cancelled"
)

type BookingStatusUpdate struct {
	BookingID string    `json:"bookingId"`
	RequestID string    `json:"requestId"`
	Status    string    `json:"status"`
	DriverID  string    `json:"driverId,omitempty"`
	Reason    string    `json:"reason,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// RideStatus is the rich push delivered to the rider's channel when a driver
// is assigned.
type RideStatus struct {
	RideID  string      `json:"ride_id"`
	UserID  string      `json:"userId"`
	Status  string      `json:"status"`
	Message string      `json:"message"`
	Booking BookingCard `json:"booking"`
	Driver  Candidate   `json:"driverDetails"`
	Coords  *Coord      `json:"driverCoordinates,omitempty"`
}

type BookingCard struct {
	BookingID    string    `json:"bookingId"`
	RideID       string    `json:"ride_id"`
	Date         time.Time `json:"date"`
	Distance     string    `json:"distance"`
	Duration     string    `json:"duration"`
	Price        float64   `json:"price"`
	Pin          int       `json:"pin"`
	Pickup       Location  `json:"pickupCoordinates"`
	Drop         Location  `json:"dropoffCoordinates"`
	Status       string    `json:"status"`
	VehicleModel string    `json:"vehicleModel,omitempty"`
}

// ActionResult is the structured reply to a driver's accept/reject frame.
// The losing side of a race gets Success=false with an explanation, never a
// dropped connection.
type ActionResult struct {
	Success   bool   `json:"success"`
	BookingID string `json:"bookingId"`
	Message   string `json:"message"`
}

// CancelRequest arrives on ride.cancel.
type CancelRequest struct {
	BookingID       string `json:"bookingId"`
	UserID          string `json:"userId"`
	DriverID        string `json:"driverId,omitempty"`
	Reason          string `json:"reason,omitempty"`
	PaymentIntentID string `json:"paymentIntentId,omitempty"`
}

// RideLifecycle arrives on ride.start and ride.completed.
type RideLifecycle struct {
	BookingID       string  `json:"bookingId"`
	RideID          string  `json:"rideId"`
	UserID          string  `json:"userId"`
	DriverID        string  `json:"driverId"`
	PaymentIntentID string  `json:"paymentIntentId,omitempty"`
	Fare            float64 `json:"fare,omitempty"`
}

// PaymentEvent arrives on payment.completed and is relayed to both parties.
type PaymentEvent struct {
	BookingID string  `json:"bookingId"`
	UserID    string  `json:"userId"`
	DriverID  string  `json:"driverId"`
	Amount    float64 `json:"amount"`
	Method    string  `json:"method,omitempty"`
}

// ChatMessage is relayed between rider and driver channels verbatim.
type ChatMessage struct {
	RideID    string `json:"rideId"`
	Sender    string `json:"sender"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
	DriverID  string `json:"driverId,omitempty"`
	UserID    string `json:"userId,omitempty"`
	Type      string `json:"type,omitempty"`
	FileURL   string `json:"fileUrl,omitempty"`
}

// DriverProfile is the presence-directory detail record, keyed per pool.
type DriverProfile struct {
	DriverID       string  `json:"driverId"`
	Name           string  `json:"name"`
	Phone          string  `json:"driverNumber"`
	Rating         float64 `json:"rating"`
	CancelledRides int     `json:"cancelledRides"`
	VehicleModel   string  `json:"vehicleModel"`
	VehicleNumber  string  `json:"vehicleNumber,omitempty"`
	Photo          string  `json:"photo,omitempty"`
}
