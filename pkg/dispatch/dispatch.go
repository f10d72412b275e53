package dispatch

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"

	"github.com/relaydb/graphstore/pkg/backup"
	"github.com/relaydb/graphstore/pkg/entity"
	"github.com/relaydb/graphstore/pkg/graphstore"
	"github.com/relaydb/graphstore/pkg/index"
	"github.com/relaydb/graphstore/pkg/page"
	"github.com/relaydb/graphstore/pkg/relationship"
	"github.com/relaydb/graphstore/pkg/value"
)

// Envelope is the tagged dispatch request of spec.md §6: a discriminated
// union by (Type, Operation), carrying an operation-specific body and an
// optional correlation tag.
type Envelope struct {
	Type      string          `json:"type"`
	Operation string          `json:"operation"`
	Request   json.RawMessage `json:"request"`
	Tag       string          `json:"tag,omitempty"`
}

// Router dispatches envelopes to the Index, Entity, Relationship, and
// Backup engines, mirroring the teacher's cobra command table but keyed on
// (type, operation) rather than argv.
type Router struct {
	Index        *index.Engine
	Entity       *entity.Engine
	Relationship *relationship.Engine
	Backup       *backup.Service
}

func NewRouter(idx *index.Engine, ent *entity.Engine, rel *relationship.Engine, bk *backup.Service) *Router {
	return &Router{Index: idx, Entity: ent, Relationship: rel, Backup: bk}
}

// successResponse is the wire shape of every `{success}` response.
type successResponse struct {
	Success bool `json:"success"`
}

// Dispatch routes env to the matching handler. The envelope's Tag is used
// only for caller-side correlation; if absent, Dispatch assigns one so
// every call can be traced through logs even when the caller didn't ask.
func (r *Router) Dispatch(ctx context.Context, env Envelope) (interface{}, string, error) {
	tag := env.Tag
	if tag == "" {
		tag = uuid.NewString()
	}

	var (
		resp interface{}
		err  error
	)
	switch env.Type {
	case "index":
		resp, err = r.dispatchIndex(ctx, env.Operation, env.Request)
	case "query":
		resp, err = r.dispatchQuery(ctx, env.Operation, env.Request)
	case "relationship":
		resp, err = r.dispatchRelationship(ctx, env.Operation, env.Request)
	case "store":
		resp, err = r.dispatchStore(ctx, env.Operation, env.Request)
	default:
		err = graphstore.UnknownOperation(env.Type + "/" + env.Operation)
	}
	return resp, tag, err
}

func decode(raw json.RawMessage, out interface{}) error {
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return graphstore.BadRequest("malformed request: " + err.Error())
	}
	return nil
}

// --- index ------------------------------------------------------------

func (r *Router) dispatchIndex(ctx context.Context, op string, raw json.RawMessage) (interface{}, error) {
	switch op {
	case "create":
		var req struct{ Property string `json:"property"` }
		if err := decode(raw, &req); err != nil {
			return nil, err
		}
		d, err := r.Index.CreateIndex(ctx, req.Property)
		return declResponse(d), err

	case "read":
		var req struct{ ID string `json:"id"` }
		if err := decode(raw, &req); err != nil {
			return nil, err
		}
		d, err := r.Index.ReadIndex(ctx, req.ID)
		return declResponse(d), err

	case "update":
		var req struct {
			ID       string `json:"id"`
			Property string `json:"property"`
		}
		if err := decode(raw, &req); err != nil {
			return nil, err
		}
		d, err := r.Index.UpdateIndex(ctx, req.ID, req.Property)
		return declResponse(d), err

	case "remove":
		var req struct{ ID string `json:"id"` }
		if err := decode(raw, &req); err != nil {
			return nil, err
		}
		ok, err := r.Index.RemoveIndex(ctx, req.ID)
		return successResponse{Success: ok}, err

	case "list":
		out := make(map[string]interface{})
		for id, d := range r.Index.ListIndexes() {
			out[id] = declResponse(d)
		}
		return out, nil

	default:
		return nil, graphstore.UnknownOperation("index/" + op)
	}
}

func declResponse(d index.Declaration) map[string]interface{} {
	return map[string]interface{}{"id": d.ID, "property": d.Property}
}

// --- query (Entity Engine) --------------------------------------------

func (r *Router) dispatchQuery(ctx context.Context, op string, raw json.RawMessage) (interface{}, error) {
	switch op {
	case "create":
		var req struct {
			Key   string       `json:"key"`
			Value value.Object `json:"value"`
		}
		if err := decode(raw, &req); err != nil {
			return nil, err
		}
		return r.Entity.Create(ctx, req.Key, req.Value)

	case "batchCreate":
		var req struct {
			Entries map[string]value.Object `json:"entries"`
		}
		if err := decode(raw, &req); err != nil {
			return nil, err
		}
		entries := make([]entity.KeyedObject, 0, len(req.Entries))
		for k, v := range req.Entries {
			entries = append(entries, entity.KeyedObject{Key: k, Value: v})
		}
		return r.Entity.BatchCreate(ctx, entries)

	case "read":
		var req struct {
			Key   string `json:"key"`
			Index string `json:"index,omitempty"`
		}
		if err := decode(raw, &req); err != nil {
			return nil, err
		}
		return r.Entity.Read(ctx, req.Key, req.Index)

	case "batchRead":
		var req struct {
			Keys  []string `json:"keys"`
			Index string   `json:"index,omitempty"`
		}
		if err := decode(raw, &req); err != nil {
			return nil, err
		}
		return r.Entity.BatchRead(ctx, req.Keys, req.Index)

	case "update":
		var req struct {
			Key   string       `json:"key"`
			Value value.Object `json:"value"`
		}
		if err := decode(raw, &req); err != nil {
			return nil, err
		}
		return r.Entity.Update(ctx, req.Key, req.Value)

	case "batchUpdate":
		var req struct {
			Entries map[string]value.Object `json:"entries"`
		}
		if err := decode(raw, &req); err != nil {
			return nil, err
		}
		return r.Entity.BatchUpdate(ctx, keyedObjects(req.Entries))

	case "batchUpsert":
		var req struct {
			Entries map[string]value.Object `json:"entries"`
		}
		if err := decode(raw, &req); err != nil {
			return nil, err
		}
		return r.Entity.BatchUpsert(ctx, keyedObjects(req.Entries))

	case "remove":
		var req struct{ Key string `json:"key"` }
		if err := decode(raw, &req); err != nil {
			return nil, err
		}
		err := r.Entity.Remove(ctx, req.Key)
		return successResponse{Success: err == nil}, err

	case "batchRemove":
		var req struct{ Keys []string `json:"keys"` }
		if err := decode(raw, &req); err != nil {
			return nil, err
		}
		err := r.Entity.BatchRemove(ctx, req.Keys)
		return successResponse{Success: err == nil}, err

	case "list":
		var req struct {
			Key    string                  `json:"key,omitempty"`
			Index  string                  `json:"index,omitempty"`
			First  *int                    `json:"first,omitempty"`
			Last   *int                    `json:"last,omitempty"`
			Before *string                 `json:"before,omitempty"`
			After  *string                 `json:"after,omitempty"`
			Query  []entity.RangePredicate `json:"query,omitempty"`
		}
		if err := decode(raw, &req); err != nil {
			return nil, err
		}
		objs, err := r.Entity.List(ctx, entity.ListRequest{
			Key:   req.Key,
			Index: req.Index,
			Request: page.Request{
				First: req.First, Last: req.Last, Before: req.Before, After: req.After,
			},
			Query: req.Query,
		})
		if err != nil {
			return nil, err
		}
		return entity.ByID(objs), nil

	case "purge":
		return true, r.Entity.PurgeAll(ctx)

	default:
		return nil, graphstore.UnknownOperation("query/" + op)
	}
}

func keyedObjects(entries map[string]value.Object) []entity.KeyedObject {
	out := make([]entity.KeyedObject, 0, len(entries))
	for k, v := range entries {
		out = append(out, entity.KeyedObject{Key: k, Value: v})
	}
	return out
}

// --- relationship -------------------------------------------------------

func (r *Router) dispatchRelationship(ctx context.Context, op string, raw json.RawMessage) (interface{}, error) {
	switch op {
	case "create":
		var req relationship.CreateRequest
		if err := decode(raw, &wireCreateRequest{req: &req}); err != nil {
			return nil, err
		}
		err := r.Relationship.Create(ctx, req)
		return successResponse{Success: err == nil}, err

	case "batchCreate":
		var wire []wireCreateBody
		if err := decode(raw, &wire); err != nil {
			return nil, err
		}
		reqs := make([]relationship.CreateRequest, len(wire))
		for i, w := range wire {
			reqs[i] = w.toRequest()
		}
		err := r.Relationship.BatchCreate(ctx, reqs)
		return successResponse{Success: err == nil}, err

	case "read":
		var req struct {
			NodeA string `json:"nodeA"`
			NodeB string `json:"nodeB"`
			Name  string `json:"name"`
		}
		if err := decode(raw, &req); err != nil {
			return nil, err
		}
		exists, err := r.Relationship.HasRelationship(ctx, req.NodeA, req.NodeB, req.Name)
		return map[string]bool{"exists": exists}, err

	case "remove":
		var req relationship.RemoveRequest
		if err := decode(raw, &wireRemoveRequest{req: &req}); err != nil {
			return nil, err
		}
		return successResponse{Success: r.Relationship.Remove(ctx, req)}, nil

	case "batchRemove":
		var wire []wireRemoveBody
		if err := decode(raw, &wire); err != nil {
			return nil, err
		}
		reqs := make([]relationship.RemoveRequest, len(wire))
		for i, w := range wire {
			reqs[i] = w.toRequest()
		}
		return successResponse{Success: r.Relationship.BatchRemove(ctx, reqs)}, nil

	case "removeNode":
		var req struct{ Node string `json:"node"` }
		if err := decode(raw, &req); err != nil {
			return nil, err
		}
		return successResponse{Success: r.Relationship.RemoveNode(ctx, req.Node)}, nil

	case "batchRemoveNode":
		var wire []struct{ Node string `json:"node"` }
		if err := decode(raw, &wire); err != nil {
			return nil, err
		}
		nodes := make([]string, len(wire))
		for i, w := range wire {
			nodes[i] = w.Node
		}
		return successResponse{Success: r.Relationship.BatchRemoveNode(ctx, nodes)}, nil

	case "list":
		var req struct {
			Name   string  `json:"name"`
			Node   string  `json:"node"`
			First  *int    `json:"first,omitempty"`
			Last   *int    `json:"last,omitempty"`
			Before *string `json:"before,omitempty"`
			After  *string `json:"after,omitempty"`
		}
		if err := decode(raw, &req); err != nil {
			return nil, err
		}
		result, err := r.Relationship.List(ctx, relationship.ListRequest{
			Name: req.Name,
			Node: req.Node,
			Request: page.Request{
				First: req.First, Last: req.Last, Before: req.Before, After: req.After,
			},
		})
		if err != nil {
			return nil, err
		}
		return listResultResponse(result), nil

	case "batchList":
		var req struct {
			Requests []struct {
				Name   string  `json:"name"`
				Node   string  `json:"node"`
				First  *int    `json:"first,omitempty"`
				Last   *int    `json:"last,omitempty"`
				Before *string `json:"before,omitempty"`
				After  *string `json:"after,omitempty"`
			} `json:"requests"`
		}
		if err := decode(raw, &req); err != nil {
			return nil, err
		}
		reqs := make([]relationship.ListRequest, len(req.Requests))
		for i, w := range req.Requests {
			reqs[i] = relationship.ListRequest{
				Name: w.Name,
				Node: w.Node,
				Request: page.Request{
					First: w.First, Last: w.Last, Before: w.Before, After: w.After,
				},
			}
		}
		results, err := r.Relationship.BatchList(ctx, reqs)
		if err != nil {
			return nil, err
		}
		out := make([]map[string]interface{}, len(results))
		for i, res := range results {
			out[i] = listResultResponse(res)
		}
		return out, nil

	case "purge":
		return r.Relationship.Purge(ctx)

	default:
		return nil, graphstore.UnknownOperation("relationship/" + op)
	}
}

func listResultResponse(result page.Result) map[string]interface{} {
	items := result.Items
	if items == nil {
		items = []string{}
	}
	return map[string]interface{}{
		"relationships": items,
		"hasBefore":     result.HasBefore,
		"hasAfter":      result.HasAfter,
	}
}

// wireCreateBody/wireRemoveBody decode the catalog's flat field names into
// relationship.CreateRequest/RemoveRequest, whose Go field names read more
// clearly than the wire's AToB/BToA abbreviations.
type wireCreateBody struct {
	NodeA                    string `json:"nodeA"`
	NodeB                    string `json:"nodeB"`
	NodeAToBRelationshipName string `json:"nodeAToBRelationshipName"`
	NodeBToARelationshipName string `json:"nodeBToARelationshipName"`
}

func (w wireCreateBody) toRequest() relationship.CreateRequest {
	return relationship.CreateRequest{
		NodeA: w.NodeA, NodeB: w.NodeB,
		NodeAToBRelationshipName: w.NodeAToBRelationshipName,
		NodeBToARelationshipName: w.NodeBToARelationshipName,
	}
}

type wireCreateRequest struct{ req *relationship.CreateRequest }

func (w *wireCreateRequest) UnmarshalJSON(data []byte) error {
	var body wireCreateBody
	if err := json.Unmarshal(data, &body); err != nil {
		return err
	}
	*w.req = body.toRequest()
	return nil
}

type wireRemoveBody struct {
	NodeA string `json:"nodeA"`
	NodeB string `json:"nodeB"`
	AToB  string `json:"aToB"`
	BToA  string `json:"bToA"`
}

func (w wireRemoveBody) toRequest() relationship.RemoveRequest {
	return relationship.RemoveRequest{NodeA: w.NodeA, NodeB: w.NodeB, AToB: w.AToB, BToA: w.BToA}
}

type wireRemoveRequest struct{ req *relationship.RemoveRequest }

func (w *wireRemoveRequest) UnmarshalJSON(data []byte) error {
	var body wireRemoveBody
	if err := json.Unmarshal(data, &body); err != nil {
		return err
	}
	*w.req = body.toRequest()
	return nil
}

// --- store (Backup / Restore) -------------------------------------------

func (r *Router) dispatchStore(ctx context.Context, op string, raw json.RawMessage) (interface{}, error) {
	switch op {
	case "backup":
		return r.Backup.Backup(ctx, "")

	case "restore":
		var req struct{ BackupID string `json:"backupId"` }
		if err := decode(raw, &req); err != nil {
			return nil, err
		}
		result, err := r.Backup.Restore(ctx, req.BackupID)
		if err != nil {
			return nil, err
		}
		return map[string]int{"count": result.Count}, nil

	default:
		return nil, graphstore.UnknownOperation("store/" + op)
	}
}
