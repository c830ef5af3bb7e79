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

package web

import (
	"html/template"
	"net/http"
)

// loginPageTemplate renders the page shown in the browser after the
// provider redirect. The message goes through html/template so
// provider supplied text cannot inject markup.
var loginPageTemplate = template.Must(template.New("login").Parse(`<!DOCTYPE html>
<html>
<head>
    <meta charset="utf-8" />
    <title>{{.Title}}</title>
</head>
<body>
    <h4>{{.Heading}}</h4>
    <p>{{.Message}}</p>
</body>
</html>
`))

type loginPage struct {
	Title   string
	Heading string
	Message string
}

func loginSuccessPage() loginPage {
	return loginPage{
		Title:   "Login Succeeded",
		Heading: "You have logged into Gitscape!",
		Message: "You can now close this window and return to your terminal.",
	}
}

func loginFailurePage(description string) loginPage {
	return loginPage{
		Title:   "Login Failed",
		Heading: "An error occurred during authentication",
		Message: description,
	}
}

func loginExpiredPage() loginPage {
	return loginPage{
		Title:   "Login Failed",
		Heading: "This login session has expired",
		Message: "Return to your terminal and start the login again.",
	}
}

func (h *Handler) writePage(w http.ResponseWriter, status int, page loginPage) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := loginPageTemplate.Execute(w, page); err != nil {
		h.logger.Warn("Failed to render login page", "error", err)
	}
}
