package paystack

import "encoding/json"

// EventChargeSuccess is the only event that settles a deposit.
const EventChargeSuccess = "charge.success"

// Event is the subset of a webhook body the wallet needs.
type Event struct {
	Event string    `json:"event"`
	Data  EventData `json:"data"`
}

// EventData holds the charge details. Amount is in minor units.
type EventData struct {
	Reference string `json:"reference"`
	Amount    int64  `json:"amount"`
	Status    string `json:"status"`
	Currency  string `json:"currency"`
}

// ParseEvent decodes a webhook body.
func ParseEvent(body []byte) (Event, error) {
	var ev Event
	if err := json.Unmarshal(body, &ev); err != nil {
		return Event{}, err
	}
	return ev, nil
}
