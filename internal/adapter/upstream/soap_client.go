package upstream

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"log/slog"
	"strings"

	"github.com/carlmjohnson/requests"
	"github.com/user/integration-hub/internal/domain"
)

const soapEnvelopeOpen = `<soapenv:Envelope xmlns:soapenv="http://schemas.xmlsoap.org/soap/envelope/"><soapenv:Body>`
const soapEnvelopeClose = `</soapenv:Body></soapenv:Envelope>`

type addCustomerRequest struct {
	XMLName   xml.Name `xml:"AddCustomerRequest"`
	FirstName string   `xml:"firstName"`
	LastName  string   `xml:"lastName"`
	Email     string   `xml:"email"`
	Phone     string   `xml:"phone"`
}

type addCustomerResponseEnvelope struct {
	Body struct {
		Response struct {
			Status     string `xml:"status"`
			CustomerID string `xml:"customerId"`
			Message    string `xml:"message"`
		} `xml:"AddCustomerResponse"`
	} `xml:"Body"`
}

// SoapClient wraps the single RPC-style SOAP exchange that creates a
// customer upstream.
type SoapClient struct {
	baseURL string
	logger  *slog.Logger
}

func NewSoapClient(baseURL string, logger *slog.Logger) *SoapClient {
	return &SoapClient{
		baseURL: baseURL,
		logger:  logger.With("component", "soap_client"),
	}
}

// AddCustomer performs exactly one SOAP exchange. Transport and protocol
// failures come back as Success=false with the failure message, never as an
// error: the caller persists a local row on this result either way.
func (c *SoapClient) AddCustomer(ctx context.Context, firstName, lastName, email, phone string) domain.SoapResult {
	c.logger.Info("sending SOAP AddCustomer request", "first_name", firstName, "last_name", lastName)

	body, err := xml.Marshal(addCustomerRequest{
		FirstName: firstName,
		LastName:  lastName,
		Email:     email,
		Phone:     phone,
	})
	if err != nil {
		return domain.SoapResult{Success: false, Message: err.Error()}
	}

	var envelope bytes.Buffer
	envelope.WriteString(soapEnvelopeOpen)
	envelope.Write(body)
	envelope.WriteString(soapEnvelopeClose)

	var raw string
	err = requests.URL(c.baseURL).
		Path("/crm/soap/customers").
		ContentType("text/xml; charset=utf-8").
		Header("SOAPAction", "AddCustomer").
		BodyBytes(envelope.Bytes()).
		ToString(&raw).
		Fetch(ctx)
	if err != nil {
		c.logger.Error("SOAP AddCustomer failed", "error", err)
		return domain.SoapResult{Success: false, Message: err.Error()}
	}

	var resp addCustomerResponseEnvelope
	if err := xml.Unmarshal([]byte(raw), &resp); err != nil {
		c.logger.Error("failed to parse SOAP AddCustomer response", "error", err)
		return domain.SoapResult{Success: false, Message: fmt.Sprintf("unparsable SOAP response: %v", err)}
	}

	r := resp.Body.Response
	c.logger.Info("SOAP AddCustomer response", "status", r.Status, "customer_id", r.CustomerID)
	return domain.SoapResult{
		Success:    strings.EqualFold(r.Status, "SUCCESS"),
		CustomerID: r.CustomerID,
		Message:    r.Message,
	}
}
