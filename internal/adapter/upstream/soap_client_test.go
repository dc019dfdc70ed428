package upstream

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestSoapClient_AddCustomer(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	t.Run("Success Response", func(t *testing.T) {
		var gotBody, gotAction, gotContentType string
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/crm/soap/customers" {
				t.Errorf("unexpected path %s", r.URL.Path)
			}
			body, _ := io.ReadAll(r.Body)
			gotBody = string(body)
			gotAction = r.Header.Get("SOAPAction")
			gotContentType = r.Header.Get("Content-Type")
			w.Header().Set("Content-Type", "text/xml")
			w.Write([]byte(`<soapenv:Envelope xmlns:soapenv="http://schemas.xmlsoap.org/soap/envelope/">
				<soapenv:Body>
					<AddCustomerResponse>
						<status>SUCCESS</status>
						<customerId>CUST_42</customerId>
						<message>Customer created</message>
					</AddCustomerResponse>
				</soapenv:Body>
			</soapenv:Envelope>`))
		}))
		defer server.Close()

		client := NewSoapClient(server.URL, logger)
		result := client.AddCustomer(context.Background(), "Jane", "Doe", "jane@example.com", "+155501")

		if !result.Success {
			t.Fatalf("expected success, got %+v", result)
		}
		if result.CustomerID != "CUST_42" {
			t.Errorf("expected CUST_42, got %s", result.CustomerID)
		}
		if gotAction != "AddCustomer" {
			t.Errorf("expected SOAPAction header, got %q", gotAction)
		}
		if !strings.HasPrefix(gotContentType, "text/xml") {
			t.Errorf("expected text/xml content type, got %q", gotContentType)
		}
		for _, fragment := range []string{"<AddCustomerRequest>", "<firstName>Jane</firstName>", "<email>jane@example.com</email>", "soapenv:Envelope"} {
			if !strings.Contains(gotBody, fragment) {
				t.Errorf("request body missing %q:\n%s", fragment, gotBody)
			}
		}
	})

	t.Run("Status Is Case Insensitive", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`<Envelope><Body><AddCustomerResponse><status>success</status><customerId>CUST_1</customerId></AddCustomerResponse></Body></Envelope>`))
		}))
		defer server.Close()

		client := NewSoapClient(server.URL, logger)
		result := client.AddCustomer(context.Background(), "Jane", "Doe", "jane@example.com", "")
		if !result.Success {
			t.Errorf("expected lowercase success status to count, got %+v", result)
		}
	})

	t.Run("Failure Status", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`<Envelope><Body><AddCustomerResponse><status>FAILURE</status><message>duplicate email</message></AddCustomerResponse></Body></Envelope>`))
		}))
		defer server.Close()

		client := NewSoapClient(server.URL, logger)
		result := client.AddCustomer(context.Background(), "Jane", "Doe", "jane@example.com", "")
		if result.Success {
			t.Fatal("expected failure result")
		}
		if result.Message != "duplicate email" {
			t.Errorf("expected upstream message, got %q", result.Message)
		}
	})

	t.Run("Transport Failure Never Errors", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "gateway down", http.StatusBadGateway)
		}))
		defer server.Close()

		client := NewSoapClient(server.URL, logger)
		result := client.AddCustomer(context.Background(), "Jane", "Doe", "jane@example.com", "")
		if result.Success {
			t.Fatal("expected failure result on transport error")
		}
		if result.Message == "" {
			t.Error("expected failure message to be populated")
		}
	})

	t.Run("Unparsable Response Is A Failure Result", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`<<<not xml`))
		}))
		defer server.Close()

		client := NewSoapClient(server.URL, logger)
		result := client.AddCustomer(context.Background(), "Jane", "Doe", "jane@example.com", "")
		if result.Success {
			t.Fatal("expected failure result on unparsable response")
		}
	})
}
