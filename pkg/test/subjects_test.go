package test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"reflect"
	"testing"

	"github.com/Sternrassler/teselagen-client/internal/testutil"
)

func TestGetAssaySubjects(t *testing.T) {
	mock := testutil.NewMockPlatform()
	defer mock.Close()
	mock.SetHandler("GET "+base+"/assay-subjects", jsonHandler([]map[string]any{{"id": "1"}, {"id": "2"}}))
	mock.SetHandler("GET "+base+"/assay-subjects/1", jsonHandler(map[string]any{"id": "1", "name": "strain A"}))
	c := newTestClient(t, mock)
	ctx := context.Background()

	one, err := c.GetAssaySubjects(ctx, []string{"1"}, true)
	if err != nil {
		t.Fatalf("GetAssaySubjects(one) error = %v", err)
	}
	if len(one) != 1 || one[0]["name"] != "strain A" {
		t.Errorf("GetAssaySubjects(one) = %v", one)
	}

	many, err := c.GetAssaySubjects(ctx, []string{"1", "2"}, false)
	if err != nil || len(many) != 2 {
		t.Fatalf("GetAssaySubjects(many) = %v, %v", many, err)
	}

	reqs := mock.RequestsTo(base + "/assay-subjects")
	q := reqs[len(reqs)-1].Query
	if !reflect.DeepEqual(q["ids[]"], []string{"1", "2"}) || q.Get("summarized") != "false" {
		t.Errorf("query = %v", q)
	}
	if got := mock.RequestsTo(base + "/assay-subjects/1")[0].Query.Get("summarized"); got != "true" {
		t.Errorf("summarized = %q, want true", got)
	}
}

func TestCreateAssaySubject(t *testing.T) {
	mock := testutil.NewMockPlatform()
	defer mock.Close()
	mock.SetHandler("POST "+base+"/assay-subjects", jsonHandler([]map[string]any{{"id": "30"}}))
	c := newTestClient(t, mock)

	created, err := c.CreateAssaySubject(context.Background(), "strain B", "4")
	if err != nil || len(created) != 1 || created[0].RecordID() != "30" {
		t.Fatalf("CreateAssaySubject() = %v, %v", created, err)
	}

	var body []map[string]string
	json.Unmarshal(mock.RequestsTo(base + "/assay-subjects")[0].Body, &body)
	want := []map[string]string{{"name": "strain B", "assaySubjectClassId": "4"}}
	if !reflect.DeepEqual(body, want) {
		t.Errorf("body = %v, want %v", body, want)
	}
}

func TestDeleteAssaySubjects(t *testing.T) {
	mock := testutil.NewMockPlatform()
	defer mock.Close()
	mock.SetHandler("DELETE "+base+"/assay-subjects", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	c := newTestClient(t, mock)

	if err := c.DeleteAssaySubjects(context.Background(), []string{"3", "4"}); err != nil {
		t.Fatalf("DeleteAssaySubjects() error = %v", err)
	}
	q := mock.RequestsTo(base + "/assay-subjects")[0].Query
	if !reflect.DeepEqual(q["ids[]"], []string{"3", "4"}) {
		t.Errorf("ids[] = %v", q["ids[]"])
	}

	if err := c.DeleteAssaySubjects(context.Background(), nil); !errors.Is(err, ErrMissingID) {
		t.Errorf("DeleteAssaySubjects(nil) error = %v, want ErrMissingID", err)
	}
}

func TestCreateMetadata_Body(t *testing.T) {
	mock := testutil.NewMockPlatform()
	defer mock.Close()
	mock.SetHandler("POST "+base+"/metadata", jsonHandler([]map[string]any{{"id": "3"}}))
	c := newTestClient(t, mock)

	created, err := c.CreateMetadata(context.Background(), MetadataUnit, map[string]any{"name": "mg/L"})
	if err != nil || len(created) != 1 || created[0].RecordID() != "3" {
		t.Fatalf("CreateMetadata() = %v, %v", created, err)
	}

	var body map[string]map[string]map[string]any
	json.Unmarshal(mock.RequestsTo(base + "/metadata")[0].Body, &body)
	if body["metaData"][MetadataUnit]["name"] != "mg/L" {
		t.Errorf("body = %v", body)
	}
}

func TestGetAndDeleteMetadata(t *testing.T) {
	mock := testutil.NewMockPlatform()
	defer mock.Close()
	mock.SetHandler("GET "+base+"/metadata/unit", jsonHandler([]map[string]any{{"id": "1", "name": "g"}}))
	mock.SetHandler("DELETE "+base+"/metadata/unit/1", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	c := newTestClient(t, mock)

	units, err := c.GetMetadata(context.Background(), MetadataUnit)
	if err != nil || len(units) != 1 {
		t.Fatalf("GetMetadata() = %v, %v", units, err)
	}
	if err := c.DeleteMetadata(context.Background(), MetadataUnit, "1"); err != nil {
		t.Errorf("DeleteMetadata() error = %v", err)
	}
}

func TestAssaySubjectDescriptors(t *testing.T) {
	mock := testutil.NewMockPlatform()
	defer mock.Close()
	mock.SetHandler("PUT "+base+"/assay-subjects/descriptors", jsonHandler(map[string]any{"createdAssaySubjects": 2}))
	mock.SetHandler("POST "+base+"/assay-subjects/imports", jsonHandler(map[string]any{"importId": "imp-9"}))
	c := newTestClient(t, mock)
	ctx := context.Background()

	in := DescriptorImport{
		FileID:                 "f1",
		Mapper:                 []Mapper{{Name: "Strain", Class: "assaySubject"}},
		CreateSubjectsFromFile: true,
	}

	out, err := c.PutAssaySubjectDescriptors(ctx, in)
	if err != nil {
		t.Fatalf("PutAssaySubjectDescriptors() error = %v", err)
	}
	if n, _ := out["createdAssaySubjects"].(json.Number); n.String() != "2" {
		t.Errorf("PutAssaySubjectDescriptors() = %v", out)
	}

	started, err := c.ImportAssaySubjectDescriptors(ctx, in)
	if err != nil || started["importId"] != "imp-9" {
		t.Fatalf("ImportAssaySubjectDescriptors() = %v, %v", started, err)
	}

	var body map[string]any
	if err := json.Unmarshal(mock.RequestsTo(base + "/assay-subjects/imports")[0].Body, &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	mapper, _ := body["mapper"].([]any)
	if body["fileId"] != "f1" || body["createSubjectsFromFile"] != true || len(mapper) != 1 {
		t.Errorf("body = %v", body)
	}
}
