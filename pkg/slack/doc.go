// Package slack connects Herald to Slack: it posts messages with the [Web API],
// and receives [Events API] notifications over [HTTP webhooks or Socket Mode].
//
// [Web API]: https://docs.slack.dev/apis/web-api
// [Events API]: https://docs.slack.dev/apis/events-api
// [HTTP webhooks or Socket Mode]: https://docs.slack.dev/apis/events-api/comparing-http-socket-mode
package slack
