package helpers

import (
	"fmt"
)

func BuildResetCodeHTML(fullName, code string, ttlMinutes int) string {
	return fmt.Sprintf(`
<html>
  <body style="font-family:Arial,sans-serif; background:#f9f9f9;">
    <table width="100%%" cellpadding="0" cellspacing="0" bgcolor="#f9f9f9">
      <tr>
        <td align="center" style="padding:32px 0;">
          <table width="500" bgcolor="#fff" cellpadding="24" cellspacing="0" style="border-radius:8px; box-shadow:0 1px 6px #eee;">
            <tr>
              <td>
                <h2 style="color:#2d74da; margin-top:0;">Восстановление пароля</h2>
                <p style="font-size:16px; color:#222;">Здравствуйте, %s!</p>
                <p style="font-size:16px; color:#222;">Ваш код для восстановления пароля:</p>
                <p style="font-size:28px; letter-spacing:6px; font-weight:bold; color:#2d74da;">%s</p>
                <p style="font-size:14px; color:#555;">Код действует %d минут. Если вы не запрашивали восстановление — просто проигнорируйте это письмо.</p>
                <hr style="margin:32px 0 16px 0; border:0; border-top:1px solid #eee;">
                <div style="font-size:12px; color:#999;">Письмо сгенерировано автоматически. Не отвечайте на него.</div>
              </td>
            </tr>
          </table>
        </td>
      </tr>
    </table>
  </body>
</html>
`, fullName, code, ttlMinutes)
}

func BuildPasswordChangedHTML(fullName string) string {
	return fmt.Sprintf(`
<html>
  <body style="font-family:Arial,sans-serif; background:#f9f9f9;">
    <table width="100%%" cellpadding="0" cellspacing="0" bgcolor="#f9f9f9">
      <tr>
        <td align="center" style="padding:32px 0;">
          <table width="500" bgcolor="#fff" cellpadding="24" cellspacing="0" style="border-radius:8px; box-shadow:0 1px 6px #eee;">
            <tr>
              <td>
                <h2 style="color:#2d74da; margin-top:0;">Пароль изменён</h2>
                <p style="font-size:16px; color:#222;">Здравствуйте, %s!</p>
                <p style="font-size:16px; color:#222;">Пароль вашего аккаунта был успешно изменён.</p>
                <p style="font-size:14px; color:#555;">Если это были не вы — немедленно запросите восстановление пароля.</p>
                <hr style="margin:32px 0 16px 0; border:0; border-top:1px solid #eee;">
                <div style="font-size:12px; color:#999;">Письмо сгенерировано автоматически. Не отвечайте на него.</div>
              </td>
            </tr>
          </table>
        </td>
      </tr>
    </table>
  </body>
</html>
`, fullName)
}
