// Package realtime implements the live fan-out layer: the connection and
// topic registries, the broadcast engine, and the maintenance loops.
//
// One topic corresponds to one show. Connections subscribe per topic and the
// broadcaster fans structured messages out to the current subscriber set,
// evicting connections whose transport fails. Live per-topic statistics are
// re-broadcast on a heartbeat so late joiners converge without a pull endpoint.
package realtime
