package enums

type NotificationChannel string

const (
	ChannelEmail    NotificationChannel = "email"
	ChannelTelegram NotificationChannel = "telegram"
	ChannelInternal NotificationChannel = "internal"
)

func (c NotificationChannel) Valid() bool {
	switch c {
	case ChannelEmail, ChannelTelegram, ChannelInternal:
		return true
	}
	return false
}
