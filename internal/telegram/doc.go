// Package telegram adapts the Telegram Bot API to the relay.
//
// Client implements relay.Gateway over HTTPS: JSON calls for text and
// control operations, streamed multipart uploads for media. Every outbound
// request waits on a shared token-bucket limiter so bursts of deliveries stay
// under the platform's flood limits. Update decodes webhook and getUpdates
// payloads into relay events; WebhookHandler and Poller are the two ways the
// daemon receives them.
package telegram
