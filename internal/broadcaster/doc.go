// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package broadcaster implements the Socket Broadcaster (spec §4.10): a
// bounded queue of outgoing device updates drained by a single worker in
// micro-batches, merged per device, and fanned out to a device room and
// to every subdashboard room whose tag set intersects the update. Alarm
// notifications from internal/alarm are published the same way, outside
// the micro-batch merge since they are not per-device value updates.
//
// Delivery has two independent legs, exactly as the source's NATS client
// and the plain-websocket path in the rest of the corpus serve the same
// payload to different transports: a pkg/nats publisher for any number of
// external dashboard-gateway processes, and a gorilla/websocket hub for
// deployments without a NATS broker. Both receive the same JSON payload.
package broadcaster
