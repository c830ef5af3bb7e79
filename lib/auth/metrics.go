/*
 * Gitscape
 * Copyright (C) 2025  Gitscape, Inc.
 *
 * This program is free software: you can redistribute it and/or modify
 * it under the terms of the GNU Affero General Public License as published by
 * the Free Software Foundation, either version 3 of the License, or
 * (at your option) any later version.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 * GNU Affero General Public License for more details.
 *
 * You should have received a copy of the GNU Affero General Public License
 * along with this program.  If not, see <http://www.gnu.org/licenses/>.
 */

package auth

import "github.com/prometheus/client_golang/prometheus"

var (
	cliLoginsStarted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "gitscape_cli_logins_started_total",
			Help: "Number of CLI login handshakes started",
		},
	)
	cliCallbacks = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gitscape_cli_login_callbacks_total",
			Help: "Number of provider callbacks by result",
		},
		[]string{"result"},
	)
	cliTokenExchanges = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gitscape_cli_token_exchanges_total",
			Help: "Number of CLI token exchange attempts by result",
		},
		[]string{"result"},
	)
	sessionsExpired = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "gitscape_cli_auth_sessions_expired_total",
			Help: "Number of CLI login handshakes that expired before completing",
		},
	)
)

func init() {
	prometheus.MustRegister(
		cliLoginsStarted,
		cliCallbacks,
		cliTokenExchanges,
		sessionsExpired,
	)
}
