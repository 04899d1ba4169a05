package domain

import "time"

// Click is one recorded visit to a short link
type Click struct {
	ID        string    `json:"id"`
	LinkID    string    `json:"link_id"`
	Timestamp time.Time `json:"timestamp"`
	UserAgent string    `json:"user_agent"`
	Referrer  string    `json:"referrer"`
	IPAddress string    `json:"ip_address"`
	Country   string    `json:"country"`
	City      string    `json:"city"`
	Device    string    `json:"device"`
	Browser   string    `json:"browser"`
	OS        string    `json:"os"`
	IsBroken  bool      `json:"is_broken"`
}

// ClickEvent is the ingestion payload accepted by the log-click function.
type ClickEvent struct {
	LinkID    string `json:"link_id"`
	IPAddress string `json:"ip_address"`
	Referrer  string `json:"referrer"`
	UserAgent string `json:"user_agent"`
	Country   string `json:"country"`
	City      string `json:"city"`
	Device    string `json:"device"`
	Browser   string `json:"browser"`
	OS        string `json:"os"`
	IsBroken  bool   `json:"is_broken"`
}

// Visit is request metadata captured by the redirect server.
type Visit struct {
	Referrer  string
	UserAgent string
	IP        string
	Country   string
	City      string
}
