package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"zcl-node/internal/ncp"
	"zcl-node/internal/node"
	"zcl-node/internal/store"
	"zcl-node/internal/zcl"
)

func (s *Server) handleAPIListClusters(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.node.Registry().All())
}

func (s *Server) handleAPIGetCluster(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUint(r, "cluster", 16)
	if !ok {
		s.writeError(w, http.StatusBadRequest, "invalid cluster id")
		return
	}
	def := s.node.Registry().Get(uint16(id))
	if def == nil {
		s.writeError(w, http.StatusNotFound, "cluster not found")
		return
	}
	s.writeJSON(w, http.StatusOK, def)
}

type endpointView struct {
	ID        uint8    `json:"id"`
	ProfileID uint16   `json:"profile_id"`
	DeviceID  uint16   `json:"device_id"`
	Servers   []uint16 `json:"servers"`
	Clients   []uint16 `json:"clients"`
}

func (s *Server) handleAPIListEndpoints(w http.ResponseWriter, r *http.Request) {
	views := []endpointView{}
	for _, ep := range s.node.Endpoints() {
		cfg, ok := s.node.Endpoint(ep)
		if !ok {
			continue
		}
		views = append(views, endpointView{
			ID:        cfg.ID,
			ProfileID: cfg.ProfileID,
			DeviceID:  cfg.DeviceID,
			Servers:   cfg.Servers,
			Clients:   cfg.Clients,
		})
	}
	s.writeJSON(w, http.StatusOK, views)
}

// target parses the endpoint and cluster path values.
func (s *Server) target(w http.ResponseWriter, r *http.Request) (ep uint8, cluster uint16, ok bool) {
	e, ok := pathUint(r, "ep", 8)
	if !ok {
		s.writeError(w, http.StatusBadRequest, "invalid endpoint")
		return 0, 0, false
	}
	c, ok := pathUint(r, "cluster", 16)
	if !ok {
		s.writeError(w, http.StatusBadRequest, "invalid cluster id")
		return 0, 0, false
	}
	return uint8(e), uint16(c), true
}

// writeStatusError maps err to an HTTP status and reports its ZCL status.
func (s *Server) writeStatusError(w http.ResponseWriter, err error) {
	st := zcl.StatusOf(err)
	code := http.StatusBadRequest
	switch {
	case errors.Is(err, node.ErrClosed):
		code = http.StatusServiceUnavailable
	case st == zcl.StatusNotFound, st == zcl.StatusUnsupportedCluster, st == zcl.StatusUnsupportedAttribute:
		code = http.StatusNotFound
	case st == zcl.StatusFailure, st == zcl.StatusSoftwareFailure, st == zcl.StatusTimeout:
		code = http.StatusInternalServerError
	}
	s.writeJSON(w, code, map[string]string{"error": err.Error(), "status": st.String()})
}

type attributeView struct {
	ID     uint16       `json:"id"`
	Name   string       `json:"name"`
	Type   zcl.DataType `json:"type"`
	Value  any          `json:"value"`
	Status string       `json:"status,omitempty"`
}

func (s *Server) handleAPIReadAttributes(w http.ResponseWriter, r *http.Request) {
	ep, cluster, ok := s.target(w, r)
	if !ok {
		return
	}
	c := s.node.Registry().Cluster(cluster)
	if c == nil {
		s.writeError(w, http.StatusNotFound, "cluster not found")
		return
	}
	var views []attributeView
	err := s.node.Do(func(tx *node.Tx) error {
		if !tx.HasCluster(ep, cluster) {
			return zcl.Errorf(zcl.StatusUnsupportedCluster, "endpoint %d has no cluster 0x%04X", ep, cluster)
		}
		for _, def := range c.Attributes() {
			if def.Manufacturer != 0 {
				continue
			}
			v := attributeView{ID: def.ID, Name: def.Name, Type: def.Type}
			val, err := tx.Get(ep, cluster, def.ID)
			if err != nil {
				// optional attribute not instantiated
				continue
			}
			v.Value = val.Interface()
			views = append(views, v)
		}
		return nil
	})
	if err != nil {
		s.writeStatusError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, views)
}

func (s *Server) handleAPIReadAttribute(w http.ResponseWriter, r *http.Request) {
	ep, cluster, ok := s.target(w, r)
	if !ok {
		return
	}
	attr, ok := pathUint(r, "attr", 16)
	if !ok {
		s.writeError(w, http.StatusBadRequest, "invalid attribute id")
		return
	}
	def, err := s.node.Registry().Attribute(cluster, uint16(attr), 0)
	if err != nil {
		s.writeStatusError(w, err)
		return
	}
	v, err := s.node.ReadAttribute(ep, cluster, uint16(attr))
	if err != nil {
		s.writeStatusError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, attributeView{ID: def.ID, Name: def.Name, Type: def.Type, Value: v.Interface()})
}

type writeAttributeRequest struct {
	Value any `json:"value"`
}

func (s *Server) handleAPIWriteAttribute(w http.ResponseWriter, r *http.Request) {
	ep, cluster, ok := s.target(w, r)
	if !ok {
		return
	}
	attr, ok := pathUint(r, "attr", 16)
	if !ok {
		s.writeError(w, http.StatusBadRequest, "invalid attribute id")
		return
	}

	var req writeAttributeRequest
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	def, err := s.node.Registry().Attribute(cluster, uint16(attr), 0)
	if err != nil {
		s.writeStatusError(w, err)
		return
	}
	v, err := zcl.FromInterface(def.Type, req.Value)
	if err != nil {
		s.writeStatusError(w, zcl.Errorf(zcl.StatusInvalidDataType, "%v", err))
		return
	}
	if err := s.node.WriteAttribute(ep, cluster, uint16(attr), v); err != nil {
		s.logger.Debug("write attribute rejected", "endpoint", ep, "cluster", fmt.Sprintf("0x%04X", cluster), "attr", fmt.Sprintf("0x%04X", attr), "err", err)
		s.writeStatusError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, attributeView{ID: def.ID, Name: def.Name, Type: def.Type, Value: v.Interface(), Status: zcl.StatusSuccess.String()})
}

type destinationRequest struct {
	Addr     *uint16 `json:"addr,omitempty"`
	Group    *uint16 `json:"group,omitempty"`
	IEEE     string  `json:"ieee,omitempty"`
	Endpoint uint8   `json:"endpoint,omitempty"`
}

func (d *destinationRequest) destination() (node.Destination, error) {
	switch {
	case d == nil:
		return node.Coordinator, nil
	case d.Group != nil:
		return node.Destination{Mode: ncp.AddrGroup, Addr: *d.Group}, nil
	case d.IEEE != "":
		v, err := zcl.FromInterface(zcl.TypeEUI64, d.IEEE)
		if err != nil {
			return node.Destination{}, err
		}
		return node.Destination{Mode: ncp.AddrIEEE, IEEE: v.Uint(), Endpoint: d.Endpoint}, nil
	case d.Addr != nil:
		return node.Destination{Mode: ncp.AddrShort, Addr: *d.Addr, Endpoint: d.Endpoint}, nil
	}
	return node.Destination{}, errors.New("dst needs addr, group or ieee")
}

type sendCommandRequest struct {
	CommandID uint8               `json:"command_id"`
	Dst       *destinationRequest `json:"dst,omitempty"`
	Fields    map[string]any      `json:"fields,omitempty"`
}

func (s *Server) handleAPISendCommand(w http.ResponseWriter, r *http.Request) {
	ep, cluster, ok := s.target(w, r)
	if !ok {
		return
	}

	var req sendCommandRequest
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if _, ok := s.node.Endpoint(ep); !ok {
		s.writeError(w, http.StatusNotFound, "endpoint not found")
		return
	}
	dst, err := req.Dst.destination()
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	b, err := s.node.Registry().Build(cluster, req.CommandID, s.node.SendDirection(ep, cluster))
	if err != nil {
		s.writeStatusError(w, err)
		return
	}
	args, err := zcl.ArgsFromMap(b.Def().Params, req.Fields)
	if err != nil {
		s.writeStatusError(w, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()
	seq, err := s.node.SendCommand(ctx, node.Command{Endpoint: ep, Dst: dst, Frame: b.Args(args)})
	if err != nil {
		s.logger.Error("send command", "err", err, "endpoint", ep, "cluster", fmt.Sprintf("0x%04X", cluster))
		s.writeStatusError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "seq": seq})
}

type reportingView struct {
	Cluster   uint16       `json:"cluster"`
	Attribute uint16       `json:"attribute"`
	Type      zcl.DataType `json:"type"`
	Min       uint16       `json:"min"`
	Max       uint16       `json:"max"`
	Change    any          `json:"change,omitempty"`
}

func (s *Server) handleAPIListReporting(w http.ResponseWriter, r *http.Request) {
	ep, ok := pathUint(r, "ep", 8)
	if !ok {
		s.writeError(w, http.StatusBadRequest, "invalid endpoint")
		return
	}
	views := []reportingView{}
	err := s.node.ForEachReportable(uint8(ep), func(cluster uint16, rc zcl.ReportingConfig) {
		views = append(views, reportingView{
			Cluster:   cluster,
			Attribute: rc.ID,
			Type:      rc.Type,
			Min:       rc.Min,
			Max:       rc.Max,
			Change:    rc.Change.Interface(),
		})
	})
	if err != nil {
		s.writeStatusError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, views)
}

type configureReportingRequest struct {
	Min    uint16 `json:"min"`
	Max    uint16 `json:"max"`
	Change any    `json:"change,omitempty"`
}

func (s *Server) handleAPIConfigureReporting(w http.ResponseWriter, r *http.Request) {
	ep, cluster, ok := s.target(w, r)
	if !ok {
		return
	}
	attr, ok := pathUint(r, "attr", 16)
	if !ok {
		s.writeError(w, http.StatusBadRequest, "invalid attribute id")
		return
	}

	var req configureReportingRequest
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	def, err := s.node.Registry().Attribute(cluster, uint16(attr), 0)
	if err != nil {
		s.writeStatusError(w, err)
		return
	}
	change := zcl.Null()
	if req.Change != nil {
		change, err = zcl.FromInterface(def.Type, req.Change)
		if err != nil {
			s.writeStatusError(w, zcl.Errorf(zcl.StatusInvalidDataType, "%v", err))
			return
		}
	}
	if err := s.node.ConfigureReporting(ep, cluster, uint16(attr), req.Min, req.Max, change); err != nil {
		s.writeStatusError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleAPIListStore(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		s.writeJSON(w, http.StatusOK, []store.Entry{})
		return
	}
	entries, err := s.store.List(r.URL.Query().Get("prefix"))
	if err != nil {
		s.logger.Error("list store", "err", err)
		s.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if entries == nil {
		entries = []store.Entry{}
	}
	s.writeJSON(w, http.StatusOK, entries)
}

func (s *Server) handleAPINodeState(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		s.writeError(w, http.StatusNotFound, "no store configured")
		return
	}
	state, err := s.store.GetNodeState()
	if errors.Is(err, store.ErrNotFound) {
		s.writeError(w, http.StatusNotFound, "node state not found")
		return
	}
	if err != nil {
		s.logger.Error("get node state", "err", err)
		s.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	s.writeJSON(w, http.StatusOK, state)
}
