package email

import (
	"fmt"
)

// IntakeEmailData contains the data needed for consultation request emails.
type IntakeEmailData struct {
	FirstName     string
	Email         string
	ReferenceCode string
	ClinicName    string
	DashboardURL  string
	Language      string // "fr" (default) or "en"
	AppName       string
}

// BuildIntakeAcknowledgmentEmail creates the confirmation sent to someone who
// submitted a consultation request through the public intake form.
func BuildIntakeAcknowledgmentEmail(data IntakeEmailData) Message {
	clinicName := data.ClinicName
	if clinicName == "" {
		clinicName = appNameOr(data.AppName)
	}

	firstName := data.FirstName
	if firstName == "" {
		firstName = "bonjour"
	}

	if data.Language == "en" {
		subject := fmt.Sprintf("%s: we received your consultation request", clinicName)

		textBody := fmt.Sprintf(`Hi %s,

Thank you for reaching out to %s.

We received your consultation request. Your reference number is %s.
Keep it handy if you need to contact us about your request.

A member of our team will review your request and get back to you shortly.

%s`,
			firstName, clinicName, data.ReferenceCode, clinicName)

		htmlBody := fmt.Sprintf(`<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
</head>
<body style="font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; line-height: 1.6; color: #333; max-width: 600px; margin: 0 auto; padding: 20px;">
    <h2 style="color: #2563eb;">Hi %s,</h2>
    <p>Thank you for reaching out to %s.</p>
    <p>We received your consultation request. Your reference number is:</p>
    <p style="background-color: #f3f4f6; padding: 10px 15px; border-radius: 4px; font-family: monospace; font-size: 16px;">%s</p>
    <p>A member of our team will review your request and get back to you shortly.</p>
    <p style="color: #6b7280; font-size: 14px; margin-top: 30px;">%s</p>
</body>
</html>`,
			firstName, clinicName, data.ReferenceCode, clinicName)

		return Message{
			To:       []string{data.Email},
			Subject:  subject,
			TextBody: textBody,
			HTMLBody: htmlBody,
		}
	}

	subject := fmt.Sprintf("%s : votre demande de consultation a bien été reçue", clinicName)

	textBody := fmt.Sprintf(`Bonjour %s,

Merci d'avoir contacté %s.

Nous avons bien reçu votre demande de consultation. Votre numéro de référence est %s.
Conservez-le pour toute communication au sujet de votre demande.

Un membre de notre équipe examinera votre demande et vous recontactera sous peu.

%s`,
		firstName, clinicName, data.ReferenceCode, clinicName)

	htmlBody := fmt.Sprintf(`<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
</head>
<body style="font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; line-height: 1.6; color: #333; max-width: 600px; margin: 0 auto; padding: 20px;">
    <h2 style="color: #2563eb;">Bonjour %s,</h2>
    <p>Merci d'avoir contacté %s.</p>
    <p>Nous avons bien reçu votre demande de consultation. Votre numéro de référence est :</p>
    <p style="background-color: #f3f4f6; padding: 10px 15px; border-radius: 4px; font-family: monospace; font-size: 16px;">%s</p>
    <p>Un membre de notre équipe examinera votre demande et vous recontactera sous peu.</p>
    <p style="color: #6b7280; font-size: 14px; margin-top: 30px;">%s</p>
</body>
</html>`,
		firstName, clinicName, data.ReferenceCode, clinicName)

	return Message{
		To:       []string{data.Email},
		Subject:  subject,
		TextBody: textBody,
		HTMLBody: htmlBody,
	}
}

// BuildIntakeStaffAlertEmail notifies the clinic's intake inbox about a new
// consultation request.
func BuildIntakeStaffAlertEmail(to []string, data IntakeEmailData) Message {
	subject := fmt.Sprintf("Nouvelle demande de consultation (réf. %s)", data.ReferenceCode)

	textBody := fmt.Sprintf(`Une nouvelle demande de consultation vient d'arriver.

Référence : %s
Demandeur : %s

Consultez le tableau de bord pour la trier :
%s`,
		data.ReferenceCode, data.FirstName, data.DashboardURL)

	return Message{
		To:       to,
		Subject:  subject,
		TextBody: textBody,
	}
}

// DocumentEmailData contains the data needed for generated document emails.
type DocumentEmailData struct {
	FirstName    string
	Email        string
	DocumentName string
	DownloadURL  string
	ClinicName   string
	AppName      string
}

// BuildDocumentReadyEmail tells a client that a generated document is ready
// for download. The link is presigned and expires.
func BuildDocumentReadyEmail(data DocumentEmailData) Message {
	clinicName := data.ClinicName
	if clinicName == "" {
		clinicName = appNameOr(data.AppName)
	}

	subject := fmt.Sprintf("%s : votre document est prêt", clinicName)

	textBody := fmt.Sprintf(`Bonjour %s,

Votre document « %s » est prêt.

Vous pouvez le télécharger ici (le lien expirera) :
%s

%s`,
		data.FirstName, data.DocumentName, data.DownloadURL, clinicName)

	htmlBody := fmt.Sprintf(`<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
</head>
<body style="font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; line-height: 1.6; color: #333; max-width: 600px; margin: 0 auto; padding: 20px;">
    <h2 style="color: #2563eb;">Bonjour %s,</h2>
    <p>Votre document « %s » est prêt.</p>
    <p style="text-align: center; margin: 30px 0;">
        <a href="%s" style="background-color: #2563eb; color: white; padding: 12px 24px; text-decoration: none; border-radius: 6px; display: inline-block;">Télécharger</a>
    </p>
    <p style="color: #6b7280; font-size: 14px;">Le lien expirera après un certain temps.</p>
    <p style="color: #6b7280; font-size: 14px; margin-top: 30px;">%s</p>
</body>
</html>`,
		data.FirstName, data.DocumentName, data.DownloadURL, clinicName)

	return Message{
		To:       []string{data.Email},
		Subject:  subject,
		TextBody: textBody,
		HTMLBody: htmlBody,
	}
}

// PayerBudgetEmailData contains the data for PAE budget warning emails.
type PayerBudgetEmailData struct {
	ClientName       string
	ProgramName      string
	UsedPercent      int
	AmountUsed       string
	MaxAmount        string
	AppointmentsUsed int
}

// BuildPayerBudgetWarningEmail alerts billing staff that a PAE budget is
// close to exhausted.
func BuildPayerBudgetWarningEmail(to []string, data PayerBudgetEmailData) Message {
	subject := fmt.Sprintf("Budget PAE presque épuisé : %s", data.ClientName)

	textBody := fmt.Sprintf(`Le budget du programme d'aide aux employés approche de sa limite.

Client : %s
Programme : %s
Utilisation : %d %% (%s sur %s)
Rendez-vous facturés : %d

Pensez à prévenir le client avant son prochain rendez-vous.`,
		data.ClientName, data.ProgramName, data.UsedPercent, data.AmountUsed, data.MaxAmount, data.AppointmentsUsed)

	return Message{
		To:       to,
		Subject:  subject,
		TextBody: textBody,
	}
}

// OTPEmailData contains the data needed for one-time code emails.
type OTPEmailData struct {
	Email      string
	Code       string
	TTLMinutes int
	AppName    string
}

// BuildOTPEmail creates a login code email.
func BuildOTPEmail(data OTPEmailData) Message {
	appName := appNameOr(data.AppName)

	subject := fmt.Sprintf("%s : votre code de connexion", appName)

	textBody := fmt.Sprintf(`Votre code de connexion %s :

%s

Ce code expire dans %d minutes. Si vous n'avez pas demandé ce code, ignorez ce courriel.`,
		appName, data.Code, data.TTLMinutes)

	htmlBody := fmt.Sprintf(`<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
</head>
<body style="font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; line-height: 1.6; color: #333; max-width: 600px; margin: 0 auto; padding: 20px;">
    <p>Votre code de connexion %s :</p>
    <p style="background-color: #f3f4f6; padding: 10px 15px; border-radius: 4px; font-family: monospace; font-size: 24px; letter-spacing: 4px; text-align: center;">%s</p>
    <p style="color: #6b7280; font-size: 14px;">Ce code expire dans %d minutes. Si vous n'avez pas demandé ce code, ignorez ce courriel.</p>
</body>
</html>`,
		appName, data.Code, data.TTLMinutes)

	return Message{
		To:       []string{data.Email},
		Subject:  subject,
		TextBody: textBody,
		HTMLBody: htmlBody,
	}
}

func appNameOr(name string) string {
	if name == "" {
		return "Ovelia"
	}
	return name
}
