package mqtt

import (
	"fmt"
	"strings"
)

// Topic prefixes for the Secret Box MQTT hierarchy.
const (
	// TopicPrefix is the root of every topic.
	TopicPrefix = "secretbox"

	// TopicPrefixSystem is the base for controller status topics.
	TopicPrefixSystem = "secretbox/system"
)

// Chain control operations accepted on ChainControl topics.
const (
	OpArm    = "arm"
	OpDisarm = "disarm"
	OpReset  = "reset"
)

// Topics provides builders for Secret Box MQTT topics.
//
//	topics := mqtt.Topics{}
//	topics.ChainControl("intro", mqtt.OpArm)
//	// Returns: "secretbox/chain/intro/arm"
type Topics struct{}

// =============================================================================
// Command Topics
// =============================================================================

// I2CReceive returns the topic carrying raw command frames from the I2C
// master: one byte of command code followed by the payload.
//
// Example: secretbox/i2c/rx
func (Topics) I2CReceive() string {
	return TopicPrefix + "/i2c/rx"
}

// I2CAck returns the topic where frame handling results are published.
//
// Example: secretbox/i2c/ack
func (Topics) I2CAck() string {
	return TopicPrefix + "/i2c/ack"
}

// ChainControl returns the control topic for a chain operation.
//
// Example: secretbox/chain/intro/arm
func (Topics) ChainControl(chain, op string) string {
	return fmt.Sprintf("%s/chain/%s/%s", TopicPrefix, chain, op)
}

// ParseChainControl splits a ChainControl topic into chain name and operation.
func (Topics) ParseChainControl(topic string) (chain, op string, ok bool) {
	parts := strings.Split(topic, "/")
	if len(parts) != 4 || parts[0] != TopicPrefix || parts[1] != "chain" || parts[2] == "" {
		return "", "", false
	}
	return parts[2], parts[3], true
}

// =============================================================================
// Output Topics
// =============================================================================

// SoundPlay returns the topic the audio player listens on.
//
// Example: secretbox/sound/play
func (Topics) SoundPlay() string {
	return TopicPrefix + "/sound/play"
}

// ChainEvent returns the topic chain lifecycle events are published to.
//
// Example: secretbox/chain/intro/event
func (Topics) ChainEvent(chain string) string {
	return fmt.Sprintf("%s/chain/%s/event", TopicPrefix, chain)
}

// =============================================================================
// System Topics
// =============================================================================

// SystemStatus returns the controller status topic (online/offline LWT).
//
// Example: secretbox/system/status
func (Topics) SystemStatus() string {
	return TopicPrefixSystem + "/status"
}

// =============================================================================
// Wildcard Patterns for Subscriptions
// =============================================================================

// AllChainControl returns a pattern matching every chain control topic.
// It also matches ChainEvent topics; ParseChainControl callers must check op.
//
// Pattern: secretbox/chain/+/+
func (Topics) AllChainControl() string {
	return TopicPrefix + "/chain/+/+"
}

// AllTopics returns a pattern matching all Secret Box topics.
//
// Pattern: secretbox/#
func (Topics) AllTopics() string {
	return TopicPrefix + "/#"
}
