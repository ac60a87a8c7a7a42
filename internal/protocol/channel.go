// Package protocol defines the wire vocabulary for the multiplexed
// control-plane WebSocket: channels, commands, events, messages and
// delegation types. One JSON frame per WebSocket message; every frame
// carries a channel discriminator.
package protocol

// Channel identifies a logical sub-protocol multiplexed over one socket.
type Channel string

const (
	ChannelAgent    Channel = "agent"
	ChannelFiles    Channel = "files"
	ChannelTerminal Channel = "terminal"
	ChannelHstry    Channel = "hstry"
	ChannelTrx      Channel = "trx"
	ChannelSystem   Channel = "system"
)

// Valid reports whether c is one of the known channels.
func (c Channel) Valid() bool {
	switch c {
	case ChannelAgent, ChannelFiles, ChannelTerminal, ChannelHstry, ChannelTrx, ChannelSystem:
		return true
	}
	return false
}
