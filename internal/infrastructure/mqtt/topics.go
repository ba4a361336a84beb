package mqtt

import "fmt"

// Topic prefixes. Bridge topics use the flat scheme
// graylogic/{category}/{protocol}/{address}.
const (
	TopicPrefixBridge = "graylogic"
	TopicPrefixSystem = "graylogic/system"
)

// Topics provides builders for the MQTT topics the bridge uses.
//
//	topics := mqtt.Topics{}
//	topics.BridgeState("haassohn", "device.sp_temp")
//	// "graylogic/state/haassohn/device.sp_temp"
type Topics struct{}

// BridgeState returns the retained state topic for one path.
func (Topics) BridgeState(protocol, address string) string {
	return fmt.Sprintf("%s/state/%s/%s", TopicPrefixBridge, protocol, address)
}

// BridgeCommand returns the command topic for one path.
func (Topics) BridgeCommand(protocol, address string) string {
	return fmt.Sprintf("%s/command/%s/%s", TopicPrefixBridge, protocol, address)
}

// BridgeAck returns the command acknowledgement topic for one path.
func (Topics) BridgeAck(protocol, address string) string {
	return fmt.Sprintf("%s/ack/%s/%s", TopicPrefixBridge, protocol, address)
}

// BridgeHealth returns the bridge health topic.
//
// Example: graylogic/health/haassohn
func (Topics) BridgeHealth(protocol string) string {
	return fmt.Sprintf("%s/health/%s", TopicPrefixBridge, protocol)
}

// BridgeCommands returns a pattern matching every command for one protocol.
//
// Pattern: graylogic/command/haassohn/+
func (Topics) BridgeCommands(protocol string) string {
	return fmt.Sprintf("%s/command/%s/+", TopicPrefixBridge, protocol)
}

// ClientStatus returns the retained online/offline topic of an MQTT client.
//
// Example: graylogic/system/hsbridge/status
func (Topics) ClientStatus(clientID string) string {
	return fmt.Sprintf("%s/%s/status", TopicPrefixSystem, clientID)
}

// AddressFromTopic returns the last level of a bridge topic, or "" if the
// topic does not belong to category/protocol.
func (Topics) AddressFromTopic(topic, category, protocol string) string {
	prefix := fmt.Sprintf("%s/%s/%s/", TopicPrefixBridge, category, protocol)
	if len(topic) <= len(prefix) || topic[:len(prefix)] != prefix {
		return ""
	}
	return topic[len(prefix):]
}
