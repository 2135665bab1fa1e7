package protocol

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestMathOperationMarshalNumeric(t *testing.T) {
	op := MathOperation{Num1: 2, Operator: "+", Num2: 2, Result: 4}
	data, err := json.Marshal(op)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !strings.Contains(string(data), `"result":4`) {
		t.Fatalf("expected numeric result, got %s", data)
	}
}

func TestMathOperationMarshalUndefined(t *testing.T) {
	op := MathOperation{Num1: 7, Operator: "/", Num2: 0, Undefined: true}
	data, err := json.Marshal(op)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !strings.Contains(string(data), `"result":"undefined"`) {
		t.Fatalf("expected undefined result, got %s", data)
	}
}

func TestMathOperationUnmarshal(t *testing.T) {
	var op MathOperation
	if err := json.Unmarshal([]byte(`{"num1":9,"operator":"/","num2":2,"result":4.5}`), &op); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if op.Result != 4.5 || op.Undefined {
		t.Fatalf("unexpected operation: %+v", op)
	}

	if err := json.Unmarshal([]byte(`{"num1":7,"operator":"/","num2":0,"result":"undefined"}`), &op); err != nil {
		t.Fatalf("unmarshal undefined: %v", err)
	}
	if !op.Undefined {
		t.Fatalf("expected undefined, got %+v", op)
	}

	if err := json.Unmarshal([]byte(`{"num1":1,"operator":"+","num2":1,"result":"banana"}`), &op); err == nil {
		t.Fatal("expected error for unexpected string result")
	}
}

func TestMathOperationUnmarshalMissingResult(t *testing.T) {
	var op MathOperation
	if err := json.Unmarshal([]byte(`{"num1":1,"operator":"+","num2":1}`), &op); err == nil {
		t.Fatal("expected error for absent result")
	}
	if err := json.Unmarshal([]byte(`{"num1":1,"operator":"+","num2":1,"result":null}`), &op); err == nil {
		t.Fatal("expected error for null result")
	}
}

func TestChatResponseNullOperation(t *testing.T) {
	data, err := json.Marshal(ChatResponse{TextResponse: "hello"})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !strings.Contains(string(data), `"math_operation":null`) {
		t.Fatalf("expected explicit null math_operation, got %s", data)
	}

	var resp ChatResponse
	if err := json.Unmarshal([]byte(`{"text_response":"4","math_operation":{"num1":2,"operator":"+","num2":2,"result":4}}`), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.MathOperation == nil || resp.MathOperation.Result != 4 {
		t.Fatalf("unexpected response: %+v", resp)
	}
}

func TestResultString(t *testing.T) {
	if got := (MathOperation{Result: 4}).ResultString(); got != "4" {
		t.Fatalf("got %q", got)
	}
	if got := (MathOperation{Result: 4.5}).ResultString(); got != "4.5" {
		t.Fatalf("got %q", got)
	}
	if got := (MathOperation{Undefined: true}).ResultString(); got != "undefined" {
		t.Fatalf("got %q", got)
	}
}
