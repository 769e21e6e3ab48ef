// Copyright 2025, the RetroTV project. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

package app

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sort"

	"github.com/tvargenta/retrotv/pkg/store"
)

func canalNombre(canales store.Channels, canalID string) string {
	if c, ok := canales[canalID]; ok && c.Nombre != "" {
		return c.Nombre
	}
	return canalID
}

// canalNumero resolves the 2-digit display number for a channel.
// "03" is reserved for the AV input; channels without an explicit
// numero are auto-assigned from 04 in id order.
func canalNumero(canales store.Channels, canalID string) string {
	if canalID == "03" {
		return "03"
	}
	if c, ok := canales[canalID]; ok && c.Numero != "" {
		return fmt.Sprintf("%02s", c.Numero)
	}
	ids := make([]string, 0, len(canales))
	for id := range canales {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for i, id := range ids {
		if id == canalID {
			return fmt.Sprintf("%02d", i+4)
		}
	}
	return "00"
}

func (s *Server) canalesHandlerFunc(w http.ResponseWriter, r *http.Request) {
	canales := s.store.Channels()
	activo := s.store.ActiveChannel().CanalID

	ids := make([]string, 0, len(canales))
	for id := range canales {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	list := make([]map[string]string, 0, len(ids))
	for _, id := range ids {
		c := canales[id]
		icono := c.Icono
		if icono == "" {
			icono = "📺"
		}
		list = append(list, map[string]string{
			"id":     id,
			"nombre": canalNombre(canales, id),
			"icono":  icono,
		})
	}

	nombreActivo := "Canal Base"
	if c, ok := canales[activo]; ok && c.Nombre != "" {
		nombreActivo = c.Nombre
	}

	s.jsonResponse(w, map[string]any{
		"canales":             list,
		"canal_activo_nombre": nombreActivo,
	}, http.StatusOK)
}

func (s *Server) setCanalActivoHandlerFunc(w http.ResponseWriter, r *http.Request) {
	var body struct {
		CanalID string `json:"canal_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.CanalID == "" {
		s.errorResponse(w, "canal_id not specified", "", http.StatusBadRequest)
		return
	}

	canales := s.store.Channels()
	if _, ok := canales[body.CanalID]; !ok && body.CanalID != "base" {
		s.errorResponse(w, "unknown channel", body.CanalID, http.StatusNotFound)
		return
	}

	if err := s.store.SaveActiveChannel(store.ActiveChannel{CanalID: body.CanalID}); err != nil {
		s.errorResponse(w, "could not persist active channel", err.Error(), http.StatusInternalServerError)
		return
	}
	s.jsonResponse(w, map[string]any{"ok": true, "canal_id": body.CanalID}, http.StatusOK)
}
