// Package server implements a single-room WebSocket relay.
//
// Every connection joins the room named by RoomName when it opens and leaves
// it when it closes. Each frame a client sends is delivered unchanged to every
// other member of the room and never echoed back. The Hub owns membership and
// handles connect, message and disconnect events one at a time; Client runs
// the read and write pumps of one WebSocket; the remaining files cover
// configuration, logging, origin checks, rate limiting and HTTP wiring.
package server
