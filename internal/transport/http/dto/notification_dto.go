package dto

type SendNotificationRequest struct {
	UserID   int64             `json:"user_id"`
	Template string            `json:"template"`
	Vars     map[string]string `json:"vars,omitempty"`
	Channels []string          `json:"channels,omitempty"`
}

type BroadcastRequest struct {
	UserIDs  []int64           `json:"user_ids"`
	Template string            `json:"template"`
	Vars     map[string]string `json:"vars,omitempty"`
	Channels []string          `json:"channels,omitempty"`
}

type BroadcastResponse struct {
	Sent   int     `json:"sent"`
	Failed []int64 `json:"failed,omitempty"`
}

type UnreadCountResponse struct {
	Unread int `json:"unread"`
}
