// Package api implements the HTTP REST API and WebSocket event stream for
// the Secret Box controller.
//
// This package provides:
//   - Read endpoints for chains, pins and run history
//   - Chain control (arm, disarm, reset), pin pattern stepping and raw
//     command frames, all behind bearer JWT authentication
//   - A WebSocket hub that relays chain events ("chain.event") and pin
//     pattern steps ("pin.state")
//   - Prometheus metrics and a JSON system summary
//
// # Security
//
// Tokens are HS256 JWTs signed with security.jwt.secret; mint them with
// "secretbox token". WebSocket connections use single-use tickets from
// POST /api/v1/auth/ws-ticket so the token never appears in a URL.
//
// # Event Stream
//
// Clients send {"type":"subscribe","channels":["chain.event"],"chains":["intro"]}
// and receive {"type":"event","channel":"chain.event","payload":{...}}.
// Omitting chains subscribes to every chain.
//
// # Graceful Degradation
//
// Run history, metrics and MQTT status are optional. Without a database
// GET /runs answers 503; everything else keeps working.
package api
